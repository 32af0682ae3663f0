package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/riskgraph/internal/app/cache"
	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	"github.com/R3E-Network/riskgraph/internal/app/graphbuilder"
	"github.com/R3E-Network/riskgraph/internal/app/storage/memory"
	"github.com/R3E-Network/riskgraph/pkg/riskerrors"
)

func newTestAggregator(t *testing.T, tenantID string, store *memory.Store) *Aggregator {
	t.Helper()
	c := cache.New(nil)
	t.Cleanup(c.Shutdown)
	builder := graphbuilder.New(store, c, nil)
	return New(tenantID, builder, store, nil, nil)
}

// Scenario 6: risk aggregation across two regulations sharing a target
// department.
func TestCalculateAllRisksAggregatesAcrossRegulations(t *testing.T) {
	store := memory.New()
	r1 := graph.Regulation{TenantID: "t1", ID: "r1", Severity: graph.SeverityCritical, Status: graph.StatusActive, Active: true}
	r2 := graph.Regulation{TenantID: "t1", ID: "r2", Severity: graph.SeverityMedium, Status: graph.StatusActive, Active: true}
	store.PutRegulation(r1)
	store.PutRegulation(r2)
	store.PutDepartment(graph.Department{TenantID: "t1", ID: "d1", Code: "D1", Active: true})

	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "r1"), Target: graph.NewKey(graph.NodeDepartment, "d1"),
		ImpactWeight: 1.0, ImpactType: graph.ImpactDirect, Active: true,
	})
	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "r2"), Target: graph.NewKey(graph.NodeDepartment, "d1"),
		ImpactWeight: 1.0, ImpactType: graph.ImpactDirect, Active: true,
	})

	agg := newTestAggregator(t, "t1", store)
	results, err := agg.CalculateAllRisks(context.Background())
	require.NoError(t, err)

	var d1Result *struct {
		base, adjusted float64
		level          graph.RiskLevel
	}
	for _, r := range results {
		if r.EntityType == graph.NodeDepartment && r.EntityID == "d1" {
			d1Result = &struct {
				base, adjusted float64
				level          graph.RiskLevel
			}{r.BaseRiskScore, r.AdjustedRiskScore, r.RiskLevel}
		}
	}
	require.NotNil(t, d1Result, "expected d1 to appear in results")

	// r1 seeds 1.0 (Critical) -> d1 scores 1.0*1.0*1.0*1.0=1.0, contribution 1.0*2.0=2.0
	// r2 seeds 0.5 (Medium) -> d1 scores 0.5*1.0*1.0*1.0=0.5, contribution 0.5*1.0=0.5
	// totalRisk = 2.5, base = 2.5/2 = 1.25, adjusted = 2.5
	require.InDelta(t, 1.25, d1Result.base, 1e-9)
	require.InDelta(t, 2.5, d1Result.adjusted, 1e-9)
	require.Equal(t, graph.RiskCritical, d1Result.level)

	// Derived rows must have been written through the store.
	score, ok := store.RiskScore("t1", graph.NodeDepartment, "d1")
	require.True(t, ok)
	require.InDelta(t, 2.5, score.Adjusted, 1e-9)

	impacts := store.RegulationImpacts("r1")
	require.Len(t, impacts, 1)
	require.Equal(t, "d1", impacts[0].EntityID)
}

func TestCalculateAllRisksResultsSortedDescending(t *testing.T) {
	store := memory.New()
	store.PutRegulation(graph.Regulation{TenantID: "t1", ID: "r1", Severity: graph.SeverityHigh, Status: graph.StatusActive, Active: true})
	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "r1"), Target: graph.NewKey(graph.NodeDepartment, "d1"),
		ImpactWeight: 1.0, ImpactType: graph.ImpactDirect, Active: true,
	})
	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "r1"), Target: graph.NewKey(graph.NodeBudget, "b1"),
		ImpactWeight: 0.3, ImpactType: graph.ImpactDirect, Active: true,
	})

	agg := newTestAggregator(t, "t1", store)
	results, err := agg.CalculateAllRisks(context.Background())
	require.NoError(t, err)
	require.True(t, len(results) >= 2)
	for i := 1; i < len(results); i++ {
		require.GreaterOrEqual(t, results[i-1].AdjustedRiskScore, results[i].AdjustedRiskScore)
	}
}

func TestGetDepartmentRiskRankingFiltersAndEnriches(t *testing.T) {
	store := memory.New()
	store.PutRegulation(graph.Regulation{TenantID: "t1", ID: "r1", Severity: graph.SeverityHigh, Status: graph.StatusActive, Active: true})
	store.PutDepartment(graph.Department{TenantID: "t1", ID: "d1", Code: "FIN", DisplayName: "Finance", Active: true})
	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "r1"), Target: graph.NewKey(graph.NodeDepartment, "d1"),
		ImpactWeight: 1.0, ImpactType: graph.ImpactDirect, Active: true,
	})
	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "r1"), Target: graph.NewKey(graph.NodeBudget, "b1"),
		ImpactWeight: 1.0, ImpactType: graph.ImpactDirect, Active: true,
	})

	agg := newTestAggregator(t, "t1", store)
	rankings, err := agg.GetDepartmentRiskRanking(context.Background())
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	require.Equal(t, "FIN", rankings[0].Code)
	require.Equal(t, "Finance", rankings[0].DisplayName)
}

func TestCompareImpactMissingRegulationIsNotFound(t *testing.T) {
	store := memory.New()
	agg := newTestAggregator(t, "t1", store)
	_, err := agg.CompareImpact(context.Background(), "does-not-exist", time.Now(), time.Now())
	require.Error(t, err)
	require.True(t, riskerrors.Is(err, riskerrors.CodeNotFound))
}

func TestCompareImpactComputesDeltas(t *testing.T) {
	store := memory.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	prior := graph.Regulation{
		TenantID: "t1", ID: "prior", Severity: graph.SeverityMedium, Status: graph.StatusActive,
		Active: true, EffectiveDate: base.AddDate(0, -6, 0),
	}
	target := graph.Regulation{
		TenantID: "t1", ID: "target", Severity: graph.SeverityHigh, Status: graph.StatusActive,
		Active: true, EffectiveDate: base,
	}
	store.PutRegulation(prior)
	store.PutRegulation(target)

	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "prior"), Target: graph.NewKey(graph.NodeDepartment, "d1"),
		ImpactWeight: 1.0, ImpactType: graph.ImpactDirect, Active: true,
	})
	store.PutEdge(graph.Edge{
		TenantID: "t1", Source: graph.NewKey(graph.NodeRegulation, "target"), Target: graph.NewKey(graph.NodeDepartment, "d1"),
		ImpactWeight: 1.0, ImpactType: graph.ImpactDirect, Active: true,
	})

	agg := newTestAggregator(t, "t1", store)
	cmp, err := agg.CompareImpact(context.Background(), "target", base, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, "target", cmp.RegulationID)

	found := false
	for _, d := range cmp.Deltas {
		if d.EntityID == "d1" {
			found = true
			// before: prior(Medium=0.5)*1.0*1.0*1.0=0.5, weighted 0.5 -> 0.25
			// after: target(High=0.8)*1.0*1.0*1.0=0.8
			require.InDelta(t, 0.25, d.Before, 1e-9)
			require.InDelta(t, 0.8, d.After, 1e-9)
			require.InDelta(t, 0.55, d.Change, 1e-9)
		}
	}
	require.True(t, found, "expected d1 to appear in the delta list")
}
