// Package scoring maps upstream validation payloads to a quality score and
// risk tier. Everything here is pure and deterministic.
package scoring

import "github.com/go-verify-api/internal/domain"

// Score is the outcome of scoring one validation result.
type Score struct {
	Quality float64
	Tier    domain.RiskTier
}

// Upstream risk status values.
const (
	riskStatusHigh   = "high"
	riskStatusMedium = "medium"
)

const invalidQuality = 0.1

// Result dispatches on the result's kind.
func Result(r *domain.ValidationResult) Score {
	switch r.Kind {
	case domain.KindEmail:
		if r.Email == nil {
			return Score{Quality: invalidQuality, Tier: domain.RiskHigh}
		}
		return Email(r.Email)
	case domain.KindPhone:
		if r.Phone == nil {
			return Score{Quality: invalidQuality, Tier: domain.RiskHigh}
		}
		return Phone(r.Phone)
	}
	return Score{Quality: invalidQuality, Tier: domain.RiskHigh}
}

// Email scores an email payload. Undeliverable addresses are always 0.1/high;
// otherwise the provider quality score is used as-is and the tier derived from
// it is escalated by the risk and breach signals.
func Email(e *domain.EmailValidationResult) Score {
	if e.Deliverability == nil || e.Deliverability.Status != domain.DeliverabilityDeliverable {
		return Score{Quality: invalidQuality, Tier: domain.RiskHigh}
	}
	q := e.Quality.Score
	tier := baseTier(q)

	addr, dom := e.Risk.AddressRiskStatus, e.Risk.DomainRiskStatus
	if addr == riskStatusHigh || dom == riskStatusHigh {
		tier = tier.AtLeast(domain.RiskHigh)
	}
	if (addr == riskStatusMedium || dom == riskStatusMedium) && tier == domain.RiskLow {
		tier = domain.RiskMedium
	}
	if e.Breaches.TotalBreaches > 0 {
		tier = tier.Escalate()
	}
	return Score{Quality: q, Tier: tier}
}

func baseTier(q float64) domain.RiskTier {
	switch {
	case q < 0.3:
		return domain.RiskHigh
	case q <= 0.7:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Phone scores a phone payload; first matching rule wins.
func Phone(p *domain.PhoneValidationResult) Score {
	switch {
	case p.Valid == nil || !*p.Valid:
		return Score{Quality: invalidQuality, Tier: domain.RiskHigh}
	case p.Type == domain.PhoneTypeMobile:
		return Score{Quality: 0.9, Tier: domain.RiskLow}
	case p.Type == domain.PhoneTypeLandline:
		return Score{Quality: 0.7, Tier: domain.RiskLow}
	case p.Type == domain.PhoneTypeTollFree, p.Type == domain.PhoneTypeUnknown:
		return Score{Quality: 0.5, Tier: domain.RiskMedium}
	default:
		return Score{Quality: 0.8, Tier: domain.RiskLow}
	}
}
