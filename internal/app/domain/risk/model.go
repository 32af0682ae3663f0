// Package risk holds the derived records the core writes: per-regulation
// impact rows and per-entity risk scores.
package risk

import (
	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
)

// RegulationImpact is one row per reachable non-source node for a given
// regulation, carrying the accumulated impact score, categorical level, and
// the path used to reach it.
type RegulationImpact struct {
	TenantID     string
	RegulationID string
	EntityType   graph.NodeType
	EntityID     string
	ImpactScore  float64
	ImpactLevel  graph.RiskLevel
	Path         []graph.Edge
}

// Score is one row per (tenant, entityType, entityId) holding base/adjusted
// risk score and categorical level.
type Score struct {
	TenantID   string
	EntityType graph.NodeType
	EntityID   string
	BaseScore  float64
	Adjusted   float64
	Level      graph.RiskLevel
}

// CalculationResult is the per-entity output of a full risk recalculation
// across every active regulation for a tenant.
type CalculationResult struct {
	EntityType        graph.NodeType
	EntityID          string
	BaseRiskScore     float64
	AdjustedRiskScore float64
	RiskLevel         graph.RiskLevel
	// RiskFactors maps regulation id to that regulation's contribution to
	// AdjustedRiskScore for this entity.
	RiskFactors map[string]float64
}

// DepartmentRanking enriches a CalculationResult restricted to DEPARTMENT
// nodes with display data read from the store.
type DepartmentRanking struct {
	CalculationResult
	Code        string
	DisplayName string
}

// Delta is one entity's before/after change for a timeline comparison.
type Delta struct {
	EntityType    graph.NodeType
	EntityID      string
	Before        float64
	After         float64
	Change        float64
	PercentChange float64
}

// Comparison is the result of comparing a single regulation's impact against
// a reference "before" state built from every other regulation active
// before a cutoff date.
type Comparison struct {
	RegulationID string
	BeforeDate   string
	AfterDate    string
	Deltas       []Delta
}

// AuditEntry records a single mutation for the append-only audit log the
// store exposes. Actor names the component that wrote the entry. The risk
// aggregator is the only writer in this module; the cache invalidation
// helpers take no actor and write no audit entries.
type AuditEntry struct {
	TenantID   string
	TraceID    string
	Actor      string
	Action     string
	EntityType graph.NodeType
	EntityID   string
	Details    map[string]interface{}
}
