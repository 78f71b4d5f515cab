// Package abstractapi calls the third-party email reputation and phone
// validation endpoints with per-attempt timeouts and capped exponential backoff.
package abstractapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
)

const (
	defaultAttemptTimeout = 10 * time.Second
	defaultMaxAttempts    = 3
	initialBackoff        = time.Second
	maxBackoff            = 5 * time.Second
	maxBodyBytes          = 1 << 20
)

// Observer receives one call per upstream attempt. outcome is "ok" or a Category.
type Observer interface {
	ObserveAttempt(kind domain.Kind, outcome string, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	EmailURL       string
	PhoneURL       string
	EmailAPIKey    string
	PhoneAPIKey    string
	AttemptTimeout time.Duration
	MaxAttempts    int
	HTTPClient     *http.Client
	Observer       Observer
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		EmailURL:       cfg.EmailValidationURL,
		PhoneURL:       cfg.PhoneValidationURL,
		EmailAPIKey:    cfg.EmailValidationAPIKey,
		PhoneAPIKey:    cfg.PhoneValidationAPIKey,
		AttemptTimeout: cfg.AttemptTimeout,
		MaxAttempts:    cfg.MaxAttempts,
	}
}

// Client performs one logical validation per call. It holds no per-call state.
type Client struct {
	http           *http.Client
	endpoints      map[domain.Kind]endpoint
	attemptTimeout time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	timer          backoff.Timer // nil uses real timers
	observer       Observer
}

type endpoint struct {
	url    string
	apiKey string
	param  string
}

// NewClient creates a Client. Zero-valued timeouts and attempt counts fall back to 10s and 3.
func NewClient(opts Options) *Client {
	c := &Client{
		http: opts.HTTPClient,
		endpoints: map[domain.Kind]endpoint{
			domain.KindEmail: {url: opts.EmailURL, apiKey: opts.EmailAPIKey, param: "email"},
			domain.KindPhone: {url: opts.PhoneURL, apiKey: opts.PhoneAPIKey, param: "phone"},
		},
		attemptTimeout: opts.AttemptTimeout,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		observer:       opts.Observer,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.attemptTimeout <= 0 {
		c.attemptTimeout = defaultAttemptTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	return c
}

// Validate calls the endpoint for kind and returns the tagged result.
//
// 4xx responses other than 429 fail immediately with domain.ErrExternalClient.
// Timeouts, network failures, 5xx, 429 and malformed bodies are retried; once
// the attempt budget is spent the last cause is returned wrapped in
// domain.ErrServiceUnavailable.
func (c *Client) Validate(ctx context.Context, kind domain.Kind, value string) (*domain.ValidationResult, error) {
	ep, ok := c.endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported kind %q: %w", kind, domain.ErrInvalidInput)
	}
	if ep.apiKey == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalClient,
			newError(kind, CategoryConfig, 0, errors.New("api key not configured")))
	}

	var (
		result   *domain.ValidationResult
		lastErr  error
		attempts int
	)
	op := func() error {
		attempts++
		res, err := c.attempt(ctx, kind, ep, value)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("upstream validation attempt failed, retrying",
			"kind", kind, "attempt", attempts, "wait", wait, "err", err)
	}

	err := backoff.RetryNotifyWithTimer(op, c.newBackOff(ctx), notify, c.timer)
	if err == nil {
		return result, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	if GetCategory(lastErr) == CategoryClient {
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalClient, lastErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w after %d attempts (%v): %w", domain.ErrServiceUnavailable, attempts, ctxErr, lastErr)
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrServiceUnavailable, attempts, lastErr)
}

// newBackOff waits min(initial * 2^(n-1), max) before retry n, with no jitter,
// and stops after maxAttempts total attempts.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = c.maxBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxAttempts-1)), ctx)
}

func (c *Client) attempt(ctx context.Context, kind domain.Kind, ep endpoint, value string) (res *domain.ValidationResult, err error) {
	start := time.Now()
	defer func() {
		if c.observer == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = string(GetCategory(err))
		}
		c.observer.ObserveAttempt(kind, outcome, time.Since(start))
	}()

	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	u, err := url.Parse(ep.url)
	if err != nil {
		return nil, newError(kind, CategoryConfig, 0, fmt.Errorf("parse endpoint url: %w", err))
	}
	q := u.Query()
	q.Set("api_key", ep.apiKey)
	q.Set(ep.param, value)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, newError(kind, CategoryConfig, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error embeds the request URL, which carries the API key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, newError(kind, CategoryTimeout, 0, err)
		}
		return nil, newError(kind, CategoryNetwork, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newError(kind, CategoryRateLimited, resp.StatusCode, nil)
	case resp.StatusCode >= 500:
		return nil, newError(kind, CategoryOutage, resp.StatusCode, nil)
	case resp.StatusCode >= 400:
		return nil, newError(kind, CategoryClient, resp.StatusCode, nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, newError(kind, CategoryBadData, resp.StatusCode, errors.New("unexpected status"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, newError(kind, CategoryTimeout, resp.StatusCode, err)
		}
		return nil, newError(kind, CategoryNetwork, resp.StatusCode, err)
	}
	return decode(kind, body)
}

// decode parses body into the variant for kind and checks required fields.
func decode(kind domain.Kind, body []byte) (*domain.ValidationResult, error) {
	res := &domain.ValidationResult{Kind: kind, Raw: json.RawMessage(body)}
	switch kind {
	case domain.KindEmail:
		var e domain.EmailValidationResult
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, newError(kind, CategoryBadData, http.StatusOK, fmt.Errorf("decode body: %w", err))
		}
		if e.EmailAddress == "" || e.Deliverability == nil || e.Deliverability.Status == "" {
			return nil, newError(kind, CategoryBadData, http.StatusOK, errors.New("missing email_address or email_deliverability"))
		}
		res.Email = &e
	case domain.KindPhone:
		var p domain.PhoneValidationResult
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, newError(kind, CategoryBadData, http.StatusOK, fmt.Errorf("decode body: %w", err))
		}
		if p.Valid == nil {
			return nil, newError(kind, CategoryBadData, http.StatusOK, errors.New("missing valid"))
		}
		res.Phone = &p
	}
	return res, nil
}
