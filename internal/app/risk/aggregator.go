// Package risk runs the propagation engine once per active regulation,
// aggregates per-entity impacts into base/adjusted risk scores and
// departmental rankings, and computes before/after deltas for a single
// regulation against a reference date.
package risk

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/riskgraph/internal/app/core/service"
	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	riskmodel "github.com/R3E-Network/riskgraph/internal/app/domain/risk"
	"github.com/R3E-Network/riskgraph/internal/app/graphbuilder"
	"github.com/R3E-Network/riskgraph/internal/app/observer"
	"github.com/R3E-Network/riskgraph/internal/app/propagation"
	"github.com/R3E-Network/riskgraph/internal/app/storage"
	"github.com/R3E-Network/riskgraph/pkg/logger"
	"github.com/R3E-Network/riskgraph/pkg/metrics"
	"github.com/R3E-Network/riskgraph/pkg/riskerrors"
)

// Descriptor advertises this component's placement for diagnostics.
var Descriptor = service.Descriptor{
	Name:  "risk-aggregator",
	Layer: service.LayerEngine,
}.WithCapabilities("calculate-all-risks", "department-ranking", "timeline-comparison")

// riskAggregationDepth is the depth cap risk aggregation runs propagation at.
const riskAggregationDepth = 10

// timelineDepth is the depth cap timeline comparison runs propagation at.
const timelineDepth = 5

// timelineBeforeWeight is the flat weight every prior regulation's
// contribution receives in the "before" state. This is a deliberate
// simplification, not a bug to reinterpret.
const timelineBeforeWeight = 0.5

// deltaEpsilon is the minimum |delta| a timeline comparison reports.
const deltaEpsilon = 0.01

// Aggregator runs risk aggregation and timeline comparisons for one tenant.
type Aggregator struct {
	tenantID string
	builder  *graphbuilder.Builder
	store    storage.Store
	bus      observer.Publisher
	log      *logger.Logger
}

// New constructs an Aggregator for tenantID. bus may be nil, in which case
// events are not published.
func New(tenantID string, builder *graphbuilder.Builder, store storage.Store, bus observer.Publisher, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.NewDefault("risk")
	}
	return &Aggregator{tenantID: tenantID, builder: builder, store: store, bus: bus, log: log}
}

func (a *Aggregator) newEngine(cfg propagation.Config) *propagation.Engine {
	return propagation.New(a.tenantID, a.builder, a.store, cfg, a.log)
}

type accumulator struct {
	entityType graph.NodeType
	entityID   string
	totalRisk  float64
	factors    map[string]float64
}

// CalculateAllRisks runs a fresh propagation for every active regulation,
// aggregates per-node contributions weighted by each regulation's
// severity, replaces each regulation's derived impact rows, upserts each
// node's risk score, and returns the aggregated results sorted descending
// by AdjustedRiskScore.
func (a *Aggregator) CalculateAllRisks(ctx context.Context) ([]riskmodel.CalculationResult, error) {
	a.publish(observer.EventRecalculationStart, observer.Payload{})

	// Upstream store failures are surfaced, not retried here — the caller
	// owns retry policy.
	regulations, err := a.store.ActiveRegulations(ctx, a.tenantID)
	if err != nil {
		a.publish(observer.EventRecalculationError, observer.Payload{Error: err.Error()})
		return nil, riskerrors.Upstream("active_regulations", err)
	}

	accumulators := make(map[string]*accumulator)

	for i, reg := range regulations {
		select {
		case <-ctx.Done():
			return nil, riskerrors.Cancelled("calculate_all_risks")
		default:
		}

		engine := a.newEngine(propagation.Config{
			MaxDepth:        riskAggregationDepth,
			ImpactThreshold: 0.01,
			IncludeIndirect: true,
		})
		result, err := engine.Propagate(ctx, propagation.SeedConfig{
			SourceType:    graph.NodeRegulation,
			SourceID:      reg.ID,
			InitialImpact: graph.SeverityToInitialImpact(reg.Severity),
		})
		if err != nil {
			a.publish(observer.EventRecalculationError, observer.Payload{Error: err.Error()})
			return nil, err
		}

		if err := a.replaceImpacts(ctx, reg.ID, result); err != nil {
			return nil, err
		}

		multiplier := graph.SeverityMultiplierOf(reg.Severity)
		for key, node := range result.Nodes {
			if node.Depth == 0 {
				continue // the source regulation itself does not contribute to its own risk pool
			}
			acc, ok := accumulators[key]
			if !ok {
				acc = &accumulator{entityType: node.Type, entityID: node.ID, factors: make(map[string]float64)}
				accumulators[key] = acc
			}
			contribution := node.ImpactScore * multiplier
			acc.totalRisk += contribution
			acc.factors[reg.ID] = contribution
		}

		a.publish(observer.EventRecalculationProgress, observer.Payload{Progress: float64(i+1) / float64(len(regulations))})
	}

	regCount := float64(len(regulations))
	if regCount == 0 {
		regCount = 1
	}

	results := make([]riskmodel.CalculationResult, 0, len(accumulators))
	for _, acc := range accumulators {
		base := acc.totalRisk / regCount
		cr := riskmodel.CalculationResult{
			EntityType:        acc.entityType,
			EntityID:          acc.entityID,
			BaseRiskScore:     base,
			AdjustedRiskScore: acc.totalRisk,
			RiskLevel:         graph.ImpactToRiskLevel(base),
			RiskFactors:       acc.factors,
		}
		results = append(results, cr)

		if err := a.store.UpsertRiskScore(ctx, a.tenantID, acc.entityType, acc.entityID, riskmodel.Score{
			TenantID:   a.tenantID,
			EntityType: acc.entityType,
			EntityID:   acc.entityID,
			BaseScore:  cr.BaseRiskScore,
			Adjusted:   cr.AdjustedRiskScore,
			Level:      cr.RiskLevel,
		}); err != nil {
			return nil, riskerrors.Upstream("upsert_risk_score", err)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].AdjustedRiskScore > results[j].AdjustedRiskScore })

	metrics.RecordRiskRecalculation(a.tenantID)

	if err := a.store.AppendAuditLog(ctx, riskmodel.AuditEntry{
		TenantID: a.tenantID,
		TraceID:  uuid.NewString(),
		Actor:    "risk-aggregator",
		Action:   "recalculate_all_risks",
		Details:  map[string]interface{}{"regulation_count": len(regulations), "entity_count": len(results)},
	}); err != nil {
		a.log.WithError(err).Warn("failed to append audit log entry")
	}

	a.publish(observer.EventRecalculationComplete, observer.Payload{AffectedCount: len(results)})
	a.publish(observer.EventRiskUpdate, observer.Payload{AffectedCount: len(results)})

	return results, nil
}

func (a *Aggregator) replaceImpacts(ctx context.Context, regulationID string, result propagation.Result) error {
	impacts := make([]riskmodel.RegulationImpact, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		if node.Depth == 0 {
			continue // the source node is not a "reachable non-source node"
		}
		impacts = append(impacts, riskmodel.RegulationImpact{
			TenantID:     a.tenantID,
			RegulationID: regulationID,
			EntityType:   node.Type,
			EntityID:     node.ID,
			ImpactScore:  node.ImpactScore,
			ImpactLevel:  graph.ImpactToRiskLevel(node.ImpactScore),
			Path:         node.Path,
		})
	}
	if err := a.store.ReplaceRegulationImpacts(ctx, regulationID, impacts); err != nil {
		return riskerrors.Upstream("replace_regulation_impacts", err)
	}
	return nil
}

// GetDepartmentRiskRanking filters CalculateAllRisks' output to DEPARTMENT
// nodes, enriches each with name and code from the store, and returns them
// sorted descending by AdjustedRiskScore.
func (a *Aggregator) GetDepartmentRiskRanking(ctx context.Context) ([]riskmodel.DepartmentRanking, error) {
	all, err := a.CalculateAllRisks(ctx)
	if err != nil {
		return nil, err
	}

	rankings := make([]riskmodel.DepartmentRanking, 0)
	for _, cr := range all {
		if cr.EntityType != graph.NodeDepartment {
			continue
		}
		dept, found, err := a.store.FindDepartment(ctx, a.tenantID, cr.EntityID)
		if err != nil {
			return nil, riskerrors.Upstream("find_department", err)
		}
		ranking := riskmodel.DepartmentRanking{CalculationResult: cr}
		if found {
			ranking.Code = dept.Code
			ranking.DisplayName = dept.DisplayName
		}
		rankings = append(rankings, ranking)
	}

	sort.Slice(rankings, func(i, j int) bool {
		return rankings[i].AdjustedRiskScore > rankings[j].AdjustedRiskScore
	})
	return rankings, nil
}

// CompareImpact computes the before/after delta for a single regulation
// against a reference date. The "before" state aggregates every other
// active regulation whose effective date precedes beforeDate at depth cap
// 5, weighted 0.5. The "after" state propagates only the target regulation
// at depth cap 5. Deltas with |delta| <= 0.01 are omitted.
func (a *Aggregator) CompareImpact(ctx context.Context, regulationID string, beforeDate, afterDate time.Time) (riskmodel.Comparison, error) {
	target, found, err := a.store.FindRegulation(ctx, a.tenantID, regulationID)
	if err != nil {
		return riskmodel.Comparison{}, riskerrors.Upstream("find_regulation", err)
	}
	if !found {
		return riskmodel.Comparison{}, riskerrors.NotFound("regulation", regulationID)
	}

	before, err := a.beforeState(ctx, regulationID, beforeDate)
	if err != nil {
		return riskmodel.Comparison{}, err
	}

	after, err := a.afterState(ctx, target)
	if err != nil {
		return riskmodel.Comparison{}, err
	}

	keys := make(map[string]struct{})
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	deltas := make([]riskmodel.Delta, 0, len(keys))
	for k := range keys {
		b := before[k]
		af := after[k]
		delta := af - b
		if absFloat(delta) <= deltaEpsilon {
			continue
		}
		percent := 100.0
		if b != 0 {
			percent = delta / b * 100.0
		}
		nt, id := splitKey(k)
		deltas = append(deltas, riskmodel.Delta{
			EntityType:    nt,
			EntityID:      id,
			Before:        b,
			After:         af,
			Change:        delta,
			PercentChange: percent,
		})
	}

	sort.Slice(deltas, func(i, j int) bool {
		return absFloat(deltas[i].Change) > absFloat(deltas[j].Change)
	})

	return riskmodel.Comparison{
		RegulationID: regulationID,
		BeforeDate:   beforeDate.Format(time.RFC3339),
		AfterDate:    afterDate.Format(time.RFC3339),
		Deltas:       deltas,
	}, nil
}

func (a *Aggregator) beforeState(ctx context.Context, excludingID string, beforeDate time.Time) (map[string]float64, error) {
	regulations, err := a.store.RegulationsActiveBefore(ctx, a.tenantID, beforeDate, excludingID)
	if err != nil {
		return nil, riskerrors.Upstream("regulations_active_before", err)
	}

	agg := make(map[string]float64)
	for _, reg := range regulations {
		engine := a.newEngine(propagation.Config{MaxDepth: timelineDepth, ImpactThreshold: 0.01, IncludeIndirect: true})
		result, err := engine.Propagate(ctx, propagation.SeedConfig{
			SourceType:    graph.NodeRegulation,
			SourceID:      reg.ID,
			InitialImpact: graph.SeverityToInitialImpact(reg.Severity),
		})
		if err != nil {
			return nil, err
		}
		for key, node := range result.Nodes {
			agg[key] += node.ImpactScore * timelineBeforeWeight
		}
	}
	return agg, nil
}

func (a *Aggregator) afterState(ctx context.Context, target graph.Regulation) (map[string]float64, error) {
	engine := a.newEngine(propagation.Config{MaxDepth: timelineDepth, ImpactThreshold: 0.01, IncludeIndirect: true})
	result, err := engine.Propagate(ctx, propagation.SeedConfig{
		SourceType:    graph.NodeRegulation,
		SourceID:      target.ID,
		InitialImpact: graph.SeverityToInitialImpact(target.Severity),
	})
	if err != nil {
		return nil, err
	}
	agg := make(map[string]float64, len(result.Nodes))
	for key, node := range result.Nodes {
		agg[key] = node.ImpactScore
	}
	return agg, nil
}

func (a *Aggregator) publish(kind observer.EventKind, payload observer.Payload) {
	if a.bus == nil {
		return
	}
	payload.TenantID = a.tenantID
	a.bus.Publish(a.tenantID, observer.Event{Kind: kind, TenantID: a.tenantID, TraceID: uuid.NewString(), Timestamp: time.Now(), Payload: payload})
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func splitKey(key string) (graph.NodeType, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return graph.NodeType(key[:i]), key[i+1:]
		}
	}
	return "", key
}
