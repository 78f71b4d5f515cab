package domain

import "encoding/json"

// ValidationResult is the upstream response for one verification, tagged by Kind.
// Exactly one of Email or Phone is set, matching Kind. Raw is the body as received.
type ValidationResult struct {
	Kind  Kind
	Email *EmailValidationResult
	Phone *PhoneValidationResult
	Raw   json.RawMessage
}

// Valid reports whether the upstream considers the value usable.
func (r *ValidationResult) Valid() bool {
	switch r.Kind {
	case KindEmail:
		return r.Email != nil && r.Email.Deliverability != nil &&
			r.Email.Deliverability.Status == DeliverabilityDeliverable
	case KindPhone:
		return r.Phone != nil && r.Phone.Valid != nil && *r.Phone.Valid
	}
	return false
}

const DeliverabilityDeliverable = "deliverable"

// EmailValidationResult mirrors the email reputation endpoint payload.
type EmailValidationResult struct {
	EmailAddress   string               `json:"email_address"`
	Deliverability *EmailDeliverability `json:"email_deliverability"`
	Quality        EmailQuality         `json:"email_quality"`
	Sender         EmailSender          `json:"email_sender"`
	Domain         EmailDomain          `json:"email_domain"`
	Risk           EmailRisk            `json:"email_risk"`
	Breaches       EmailBreaches        `json:"email_breaches"`
}

type EmailDeliverability struct {
	Status        string   `json:"status"`
	StatusDetail  string   `json:"status_detail"`
	IsFormatValid bool     `json:"is_format_valid"`
	IsSMTPValid   bool     `json:"is_smtp_valid"`
	IsMXValid     bool     `json:"is_mx_valid"`
	MXRecords     []string `json:"mx_records"`
}

type EmailQuality struct {
	Score                float64 `json:"score"`
	IsFreeEmail          bool    `json:"is_free_email"`
	IsUsernameSuspicious bool    `json:"is_username_suspicious"`
	IsDisposable         bool    `json:"is_disposable"`
	IsCatchall           bool    `json:"is_catchall"`
	IsSubaddress         bool    `json:"is_subaddress"`
	IsRole               bool    `json:"is_role"`
	IsDMARCEnforced      bool    `json:"is_dmarc_enforced"`
	IsSPFStrict          bool    `json:"is_spf_strict"`
	MinimumAge           *int    `json:"minimum_age"`
}

type EmailSender struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	EmailProviderName *string `json:"email_provider_name"`
	OrganizationName  *string `json:"organization_name"`
	OrganizationType  *string `json:"organization_type"`
}

type EmailDomain struct {
	Domain          string  `json:"domain"`
	DomainAge       *int    `json:"domain_age"`
	IsLiveSite      *bool   `json:"is_live_site"`
	Registrar       *string `json:"registrar"`
	RegistrarURL    *string `json:"registrar_url"`
	DateRegistered  *string `json:"date_registered"`
	DateLastRenewed *string `json:"date_last_renewed"`
	DateExpires     *string `json:"date_expires"`
	IsRiskyTLD      bool    `json:"is_risky_tld"`
}

type EmailRisk struct {
	AddressRiskStatus string `json:"address_risk_status"`
	DomainRiskStatus  string `json:"domain_risk_status"`
}

type EmailBreaches struct {
	TotalBreaches     int      `json:"total_breaches"`
	DateFirstBreached *string  `json:"date_first_breached"`
	DateLastBreached  *string  `json:"date_last_breached"`
	BreachedDomains   []Breach `json:"breached_domains"`
}

type Breach struct {
	Domain       string `json:"domain"`
	DateBreached string `json:"date_breached"`
}

// PhoneValidationResult mirrors the phone validation endpoint payload.
type PhoneValidationResult struct {
	Phone    string       `json:"phone"`
	Valid    *bool        `json:"valid"`
	Format   PhoneFormat  `json:"format"`
	Country  PhoneCountry `json:"country"`
	Location string       `json:"location"`
	Type     string       `json:"type"`
	Carrier  string       `json:"carrier"`
}

type PhoneFormat struct {
	International string `json:"international"`
	Local         string `json:"local"`
}

type PhoneCountry struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

// Phone line types reported upstream.
const (
	PhoneTypeMobile   = "Mobile"
	PhoneTypeLandline = "Landline"
	PhoneTypeTollFree = "Toll_Free"
	PhoneTypeUnknown  = "Unknown"
)
