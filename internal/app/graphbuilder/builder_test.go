package graphbuilder

import (
	"context"
	"testing"

	"github.com/R3E-Network/riskgraph/internal/app/cache"
	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	"github.com/R3E-Network/riskgraph/internal/app/storage/memory"
)

func TestBuildCachesAndReuses(t *testing.T) {
	store := memory.New()
	store.PutEdge(graph.Edge{
		TenantID: "t1",
		Source:   graph.NewKey(graph.NodeRegulation, "r1"),
		Target:   graph.NewKey(graph.NodeDepartment, "d1"),
		Active:   true, ImpactWeight: 0.5, ImpactType: graph.ImpactDirect,
	})

	c := cache.New(nil)
	defer c.Shutdown()
	b := New(store, c, nil)

	g1, err := b.Build(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g1.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(g1.Edges))
	}

	// A second edge added directly to the store must not appear until the
	// cache is invalidated and rebuilt.
	store.PutEdge(graph.Edge{
		TenantID: "t1",
		Source:   graph.NewKey(graph.NodeDepartment, "d1"),
		Target:   graph.NewKey(graph.NodeBudget, "b1"),
		Active:   true, ImpactWeight: 0.8, ImpactType: graph.ImpactDirect,
	})

	g2, err := b.Build(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g2.Edges) != 1 {
		t.Fatalf("expected cached graph to still have 1 edge before invalidation, got %d", len(g2.Edges))
	}

	b.Invalidate("t1")

	g3, err := b.Build(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g3.Edges) != 2 {
		t.Fatalf("expected rebuilt graph to have 2 edges, got %d", len(g3.Edges))
	}
}

func TestBuildIsTenantScoped(t *testing.T) {
	store := memory.New()
	store.PutEdge(graph.Edge{
		TenantID: "t1",
		Source:   graph.NewKey(graph.NodeRegulation, "r1"),
		Target:   graph.NewKey(graph.NodeDepartment, "d1"),
		Active:   true, ImpactWeight: 0.5, ImpactType: graph.ImpactDirect,
	})
	store.PutEdge(graph.Edge{
		TenantID: "t2",
		Source:   graph.NewKey(graph.NodeRegulation, "r2"),
		Target:   graph.NewKey(graph.NodeDepartment, "d2"),
		Active:   true, ImpactWeight: 0.5, ImpactType: graph.ImpactDirect,
	})

	c := cache.New(nil)
	defer c.Shutdown()
	b := New(store, c, nil)

	g1, err := b.Build(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Build t1: %v", err)
	}
	g2, err := b.Build(context.Background(), "t2")
	if err != nil {
		t.Fatalf("Build t2: %v", err)
	}

	if len(g1.Edges) != 1 || g1.Edges[0].TenantID != "t1" {
		t.Fatalf("expected t1's graph to contain only its own edge, got %+v", g1.Edges)
	}
	if len(g2.Edges) != 1 || g2.Edges[0].TenantID != "t2" {
		t.Fatalf("expected t2's graph to contain only its own edge, got %+v", g2.Edges)
	}
}
