package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/infrastructure/abstractapi"
	"github.com/go-verify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-verify-api/internal/infrastructure/jwt"
	"github.com/go-verify-api/internal/infrastructure/metrics"
	s3infra "github.com/go-verify-api/internal/infrastructure/s3"
	"github.com/go-verify-api/internal/infrastructure/sns"
	transporthttp "github.com/go-verify-api/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	for _, w := range cfg.Warnings() {
		log.Printf("WARN: %s", w)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	opts := abstractapi.OptionsFromConfig(cfg)
	opts.Observer = m
	validator := abstractapi.NewClient(opts)

	deps := &transporthttp.Deps{
		Records:   dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications, cfg.DynamoTables.VerificationGuards, cfg.RateLimitWindow),
		Validator: validator,
		Metrics:   m,
		Gatherer:  reg,
	}

	// Payload archive (optional).
	if cfg.S3ArchiveBucket != "" {
		deps.Archive = s3infra.NewArchive(s3infra.NewClient(cfg), cfg.S3ArchiveBucket)
	} else {
		log.Println("WARN: S3_ARCHIVE_BUCKET not set, validation payloads will not be archived")
	}

	// Completion events (optional).
	if cfg.SNSTopicARN != "" {
		if pub, err := sns.NewPublisher(cfg); err == nil {
			deps.Events = pub
		} else {
			log.Printf("WARN: SNS publisher not available: %v", err)
		}
	}

	// Admin routes are only mounted when the public key loads.
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		deps.JWTProvider = p
	} else {
		log.Printf("WARN: JWT provider not available, admin routes disabled: %v", err)
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
