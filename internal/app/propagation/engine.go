// Package propagation implements the breadth-first weighted-impact
// traversal from a regulation node across the cached dependency graph.
package propagation

import (
	"context"
	"time"

	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	"github.com/R3E-Network/riskgraph/internal/app/graphbuilder"
	"github.com/R3E-Network/riskgraph/internal/app/storage"
	"github.com/R3E-Network/riskgraph/pkg/logger"
	"github.com/R3E-Network/riskgraph/pkg/metrics"
)

// Config governs a single Engine's traversal limits.
type Config struct {
	MaxDepth        int
	ImpactThreshold float64
	IncludeIndirect bool
}

// DefaultConfig returns the engine's documented default options.
func DefaultConfig() Config {
	return Config{
		MaxDepth:        10,
		ImpactThreshold: 0.01,
		IncludeIndirect: true,
	}
}

func (c Config) normalize() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = 10
	}
	if c.MaxDepth > 20 {
		c.MaxDepth = 20
	}
	if c.ImpactThreshold < 0 {
		c.ImpactThreshold = 0
	}
	return c
}

// SeedConfig describes a single propagate() call.
type SeedConfig struct {
	SourceType    graph.NodeType
	SourceID      string
	InitialImpact float64
}

func (s SeedConfig) normalize() SeedConfig {
	if s.InitialImpact <= 0 {
		s.InitialImpact = 1.0
	}
	return s
}

// ResultNode is one entry in a Result's node map.
type ResultNode struct {
	ID          string
	Type        graph.NodeType
	DisplayName string
	ImpactScore float64
	Depth       int
	Path        []graph.Edge
}

// Result is the output of a single propagate() call.
type Result struct {
	SourceID      string
	SourceType    graph.NodeType
	TotalAffected int
	MaxDepth      int
	Nodes         map[string]ResultNode
	Edges         []graph.Edge
	ExecutionTime time.Duration
	Cancelled     bool
}

// Engine runs one propagation traversal for a tenant.
type Engine struct {
	tenantID string
	builder  *graphbuilder.Builder
	store    storage.Store
	config   Config
	log      *logger.Logger
}

// New constructs a propagation Engine for tenantID.
func New(tenantID string, builder *graphbuilder.Builder, store storage.Store, config Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("propagation")
	}
	return &Engine{
		tenantID: tenantID,
		builder:  builder,
		store:    store,
		config:   config.normalize(),
		log:      log,
	}
}

type frontierEntry struct {
	key    graph.Key
	impact float64
	depth  int
}

// Propagate loads or reuses the cached graph for the engine's tenant and
// breadth-first expands accumulated impact outward from seed. ctx is
// checked at each edge-examination boundary for cooperative cancellation;
// on cancellation the in-progress partial result is returned flagged as
// cancelled.
func (e *Engine) Propagate(ctx context.Context, seed SeedConfig) (Result, error) {
	start := time.Now()
	seed = seed.normalize()

	g, err := e.builder.Build(ctx, e.tenantID)
	if err != nil {
		return Result{}, err
	}

	names, err := e.prefetchNames(ctx, g)
	if err != nil {
		names = map[graph.Key]string{}
	}

	sourceKey := graph.NewKey(seed.SourceType, seed.SourceID)
	result := Result{
		SourceID:   seed.SourceID,
		SourceType: seed.SourceType,
		Nodes:      make(map[string]ResultNode),
		Edges:      make([]graph.Edge, 0),
	}
	result.Nodes[sourceKey.String()] = ResultNode{
		ID:          seed.SourceID,
		Type:        seed.SourceType,
		DisplayName: displayName(names, sourceKey),
		ImpactScore: seed.InitialImpact,
		Depth:       0,
		Path:        nil,
	}

	visitedEdges := make(map[string]struct{})
	frontier := []frontierEntry{{key: sourceKey, impact: seed.InitialImpact, depth: 0}}

	maxDepthSeen := 0
	cancelled := false

frontierLoop:
	for len(frontier) > 0 {
		var next []frontierEntry
		for _, node := range frontier {
			select {
			case <-ctx.Done():
				cancelled = true
				break frontierLoop
			default:
			}

			outgoing := g.Outgoing[node.key.String()]
			for _, edge := range outgoing {
				select {
				case <-ctx.Done():
					cancelled = true
					break frontierLoop
				default:
				}

				if !edge.Active {
					continue
				}
				if edge.ImpactType == graph.ImpactIndirect && !e.config.IncludeIndirect {
					continue
				}
				if edge.ImpactType == graph.ImpactConditional && !graph.EvaluateCondition(edge.Condition) {
					continue
				}

				propagated := node.impact * edge.ImpactWeight * graph.TypeMultiplier[edge.ImpactType] * graph.SeverityWeight[edge.Target.Type]
				if propagated < e.config.ImpactThreshold {
					continue
				}
				if node.depth+1 > e.config.MaxDepth {
					continue
				}

				edgeVisitKey := node.key.String() + "->" + edge.Target.String()
				if _, seen := visitedEdges[edgeVisitKey]; seen {
					continue
				}
				visitedEdges[edgeVisitKey] = struct{}{}

				result.Edges = append(result.Edges, edge)

				targetKeyStr := edge.Target.String()
				depth := node.depth + 1
				if existing, ok := result.Nodes[targetKeyStr]; ok {
					if propagated > existing.ImpactScore {
						existing.ImpactScore = propagated
					}
					existing.Path = append(existing.Path, edge)
					result.Nodes[targetKeyStr] = existing
				} else {
					result.Nodes[targetKeyStr] = ResultNode{
						ID:          edge.Target.ID,
						Type:        edge.Target.Type,
						DisplayName: displayName(names, edge.Target),
						ImpactScore: propagated,
						Depth:       depth,
						Path:        []graph.Edge{edge},
					}
				}
				if depth > maxDepthSeen {
					maxDepthSeen = depth
				}

				if depth < e.config.MaxDepth {
					next = append(next, frontierEntry{key: edge.Target, impact: propagated, depth: depth})
				}
			}
		}
		frontier = next
	}

	result.TotalAffected = len(result.Nodes) - 1
	result.MaxDepth = maxDepthSeen
	result.ExecutionTime = time.Since(start)
	result.Cancelled = cancelled

	metrics.RecordPropagation(float64(result.ExecutionTime.Microseconds())/1000.0, result.TotalAffected)

	return result, nil
}

var allNodeTypes = []graph.NodeType{
	graph.NodeRegulation, graph.NodeDepartment, graph.NodeBudget, graph.NodeService, graph.NodeKPI,
}

// prefetchNames loads every active entity of each node type for the
// tenant — one store call per type regardless of graph size — so name
// resolution during traversal never issues a store call per discovered
// node.
func (e *Engine) prefetchNames(ctx context.Context, g graph.Graph) (map[graph.Key]string, error) {
	names := make(map[graph.Key]string)
	var firstErr error
	for _, t := range allNodeTypes {
		refs, err := e.store.ActiveEntitiesByType(ctx, e.tenantID, t)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for id, ref := range refs {
			names[graph.NewKey(t, id)] = displayOrFallback(ref.DisplayName, id)
		}
	}
	return names, firstErr
}

func displayOrFallback(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func displayName(names map[graph.Key]string, key graph.Key) string {
	if name, ok := names[key]; ok && name != "" {
		return name
	}
	return key.ID
}
