// Package storage declares the contracts the core requires from the
// external persistent store. The store itself — tenants, entities, edges,
// audit logs, materialized impact rows — lives outside this module; these
// interfaces are the seam the core calls through.
package storage

import (
	"context"
	"time"

	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	"github.com/R3E-Network/riskgraph/internal/app/domain/risk"
)

// EntityRef is the minimal shape the propagation engine needs for name
// resolution: a display name, falling back to the id when absent.
type EntityRef struct {
	ID          string
	DisplayName string
	Active      bool
}

// Store is the full contract the core consumes. Implementations own
// persistence, validation, and multi-tenancy enforcement; the core only
// reads and writes through this interface.
type Store interface {
	FindTenant(ctx context.Context, id string) (graph.Tenant, bool, error)
	FindRegulation(ctx context.Context, tenantID, id string) (graph.Regulation, bool, error)
	FindDepartment(ctx context.Context, tenantID, id string) (graph.Department, bool, error)
	FindBudget(ctx context.Context, tenantID, id string) (graph.Budget, bool, error)
	FindService(ctx context.Context, tenantID, id string) (graph.Service, bool, error)
	FindKPI(ctx context.Context, tenantID, id string) (graph.KPI, bool, error)

	// ActiveEntitiesByType returns every active entity of the given type for
	// a tenant, used to prefetch display names in bulk before a propagation
	// run instead of one store call per discovered node.
	ActiveEntitiesByType(ctx context.Context, tenantID string, t graph.NodeType) (map[string]EntityRef, error)

	ActiveEdges(ctx context.Context, tenantID string) ([]graph.Edge, error)
	ActiveRegulations(ctx context.Context, tenantID string) ([]graph.Regulation, error)
	RegulationsActiveBefore(ctx context.Context, tenantID string, before time.Time, excludingID string) ([]graph.Regulation, error)

	ReplaceRegulationImpacts(ctx context.Context, regulationID string, impacts []risk.RegulationImpact) error
	UpsertRiskScore(ctx context.Context, tenantID string, entityType graph.NodeType, entityID string, score risk.Score) error
	AppendAuditLog(ctx context.Context, entry risk.AuditEntry) error
}
