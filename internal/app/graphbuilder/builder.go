// Package graphbuilder loads all active edges for a tenant, constructs the
// outgoing/incoming adjacency indexes, and caches the result.
package graphbuilder

import (
	"context"

	"github.com/R3E-Network/riskgraph/internal/app/cache"
	"github.com/R3E-Network/riskgraph/internal/app/core/service"
	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	"github.com/R3E-Network/riskgraph/internal/app/storage"
	"github.com/R3E-Network/riskgraph/pkg/logger"
	"github.com/R3E-Network/riskgraph/pkg/riskerrors"
)

// Descriptor advertises this component's placement for diagnostics.
var Descriptor = service.Descriptor{
	Name:  "graphbuilder",
	Layer: service.LayerGraph,
}.WithCapabilities("load-active-edges", "cache-dependency-graph")

const cacheKeyPrefix = "dependency-graph:"

func cacheKey(tenantID string) string {
	return cacheKeyPrefix + tenantID
}

// Builder constructs and caches a tenant's dependency graph.
type Builder struct {
	store storage.Store
	cache *cache.Cache
	log   *logger.Logger
}

// New creates a Builder backed by store and cache.
func New(store storage.Store, c *cache.Cache, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.NewDefault("graphbuilder")
	}
	return &Builder{store: store, cache: c, log: log}
}

// Build returns the tenant's dependency graph, reusing a cached copy when
// present. On a cache miss it fetches all active edges from the store,
// builds the adjacency indexes, and caches the result with a one hour TTL
// tagged {"dependency-graph", tenantID}. A store failure propagates to the
// caller as an Upstream error; partial builds are never cached.
func (b *Builder) Build(ctx context.Context, tenantID string) (graph.Graph, error) {
	if cached, ok := b.cache.Get(tenantID, cacheKey(tenantID)); ok {
		g, ok := cached.(graph.Graph)
		if ok {
			return g, nil
		}
	}

	// Upstream store failures are surfaced, not retried here — the caller
	// owns retry policy.
	edges, err := b.store.ActiveEdges(ctx, tenantID)
	if err != nil {
		return graph.Graph{}, riskerrors.Upstream("active_edges", err)
	}

	g := graph.NewGraph(tenantID, edges)

	b.cache.Set(tenantID, cacheKey(tenantID), g, cache.Options{
		TTL:  cache.DependencyGraphTTL,
		Tags: []string{"dependency-graph", tenantID},
	})

	b.log.WithField("tenant_id", tenantID).
		WithField("edge_count", len(g.Edges)).
		Debug("dependency graph rebuilt")

	return g, nil
}

// Invalidate drops the cached graph for tenantID by invalidating the
// dependency-graph tag. Callers use this after any mutating entity/edge
// operation.
func (b *Builder) Invalidate(tenantID string) {
	b.cache.InvalidateEdge(tenantID)
}
