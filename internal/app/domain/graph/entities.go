package graph

import "time"

// Severity is the closed set of regulation severities.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// RegulationStatus is the closed set of regulation lifecycle states.
type RegulationStatus string

const (
	StatusDraft      RegulationStatus = "Draft"
	StatusActive     RegulationStatus = "Active"
	StatusSuperseded RegulationStatus = "Superseded"
	StatusRevoked    RegulationStatus = "Revoked"
)

// Tenant is the isolation unit. All graph state, caches, and notifications
// are scoped by tenant.
type Tenant struct {
	ID   string
	Code string
}

// Regulation mirrors the fields the core reads from the external store.
type Regulation struct {
	TenantID       string
	ID             string
	Code           string
	DisplayName    string
	Severity       Severity
	Status         RegulationStatus
	EffectiveDate  time.Time
	ExpirationDate *time.Time
	Version        int64
	Active         bool
}

// Department mirrors the fields the core reads from the external store.
type Department struct {
	TenantID    string
	ID          string
	Code        string
	DisplayName string
	Parent      string
	Active      bool
}

// Budget mirrors the fields the core reads from the external store.
type Budget struct {
	TenantID    string
	ID          string
	Code        string
	DisplayName string
	Amount      float64
	Currency    string
	FiscalYear  int
	Active      bool
}

// ServiceStatus is the closed set of service lifecycle states.
type ServiceStatus string

// Service mirrors the fields the core reads from the external store.
type Service struct {
	TenantID    string
	ID          string
	Code        string
	DisplayName string
	ServiceType string
	Status      ServiceStatus
	Active      bool
}

// KPI mirrors the fields the core reads from the external store.
type KPI struct {
	TenantID    string
	ID          string
	Code        string
	DisplayName string
	Unit        string
	Target      float64
	Current     float64
	Frequency   string
	Active      bool
}

// RiskLevel is the categorical bucket a numeric impact or risk score maps to.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// SeverityToInitialImpact maps a regulation's severity to the initial impact
// score used to seed propagation. Unknown severities default to 0.5.
func SeverityToInitialImpact(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.8
	case SeverityMedium:
		return 0.5
	case SeverityLow:
		return 0.3
	default:
		return 0.5
	}
}

// ImpactToRiskLevel buckets a numeric impact or risk score into a
// categorical level.
func ImpactToRiskLevel(score float64) RiskLevel {
	switch {
	case score >= 0.9:
		return RiskCritical
	case score >= 0.7:
		return RiskHigh
	case score >= 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

// SeverityMultiplier scales a regulation's per-node contribution to risk
// aggregation by its severity. Unknown severities default to 1.0.
var SeverityMultiplier = map[Severity]float64{
	SeverityCritical: 2.0,
	SeverityHigh:     1.5,
	SeverityMedium:   1.0,
	SeverityLow:      0.5,
}

// SeverityMultiplierOf returns SeverityMultiplier[s], defaulting to 1.0 for
// unrecognized severities.
func SeverityMultiplierOf(s Severity) float64 {
	if m, ok := SeverityMultiplier[s]; ok {
		return m
	}
	return 1.0
}
