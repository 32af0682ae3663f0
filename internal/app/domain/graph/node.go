// Package graph defines the typed node and edge model shared by the
// dependency-graph cache, the propagation engine, and the risk aggregator.
package graph

import "fmt"

// NodeType is the closed set of entity kinds that may participate in a
// tenant's dependency graph.
type NodeType string

const (
	NodeRegulation NodeType = "REGULATION"
	NodeDepartment NodeType = "DEPARTMENT"
	NodeBudget     NodeType = "BUDGET"
	NodeService    NodeType = "SERVICE"
	NodeKPI        NodeType = "KPI"
)

// Valid reports whether t is one of the closed set of node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeRegulation, NodeDepartment, NodeBudget, NodeService, NodeKPI:
		return true
	}
	return false
}

// Key is a (type, id) pair identifying a participant in a tenant's graph.
type Key struct {
	Type NodeType
	ID   string
}

// NewKey builds a Key from a type and id.
func NewKey(t NodeType, id string) Key {
	return Key{Type: t, ID: id}
}

// String renders the canonical "type:id" form used as the serialization key
// everywhere in the graph.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.ID)
}

// ImpactType is the closed set of edge kinds.
type ImpactType string

const (
	ImpactDirect      ImpactType = "Direct"
	ImpactIndirect    ImpactType = "Indirect"
	ImpactConditional ImpactType = "Conditional"
)

// TypeMultiplier scales propagated impact by the edge's ImpactType.
var TypeMultiplier = map[ImpactType]float64{
	ImpactDirect:      1.0,
	ImpactIndirect:    0.6,
	ImpactConditional: 0.3,
}

// SeverityWeight scales propagated impact by the target node's type. The
// REGULATION entry is intentionally greater than 1.0: traversing through a
// regulation node amplifies impact. This is preserved literally per the
// reference behavior rather than reinterpreted.
var SeverityWeight = map[NodeType]float64{
	NodeRegulation: 1.2,
	NodeDepartment: 1.0,
	NodeBudget:     0.9,
	NodeService:    0.8,
	NodeKPI:        0.7,
}

// Edge is a directed, weighted relationship between two nodes.
type Edge struct {
	TenantID       string
	Source         Key
	Target         Key
	ImpactWeight   float64
	ImpactType     ImpactType
	ImpactCategory string
	Condition      map[string]interface{}
	Active         bool
}

// EvaluateCondition applies the short-circuit rule described for conditional
// edges: a "required" key must be the literal boolean true; absent that, a
// "threshold" key must be a number strictly greater than zero; absent both,
// the condition passes. The key order is significant and preserved as-is.
func EvaluateCondition(condition map[string]interface{}) bool {
	if condition == nil {
		return true
	}
	if v, ok := condition["required"]; ok {
		b, isBool := v.(bool)
		return isBool && b
	}
	if v, ok := condition["threshold"]; ok {
		switch n := v.(type) {
		case float64:
			return n > 0
		case float32:
			return n > 0
		case int:
			return n > 0
		case int64:
			return n > 0
		default:
			return false
		}
	}
	return true
}

// Graph is the immutable, cached per-tenant view of all active edges, with
// outgoing/incoming adjacency indexes keyed by the canonical node key.
type Graph struct {
	TenantID string
	Outgoing map[string][]Edge
	Incoming map[string][]Edge
	Edges    []Edge
}

// NewGraph builds adjacency indexes from a flat edge list. Only edges marked
// Active are included.
func NewGraph(tenantID string, edges []Edge) Graph {
	g := Graph{
		TenantID: tenantID,
		Outgoing: make(map[string][]Edge),
		Incoming: make(map[string][]Edge),
		Edges:    make([]Edge, 0, len(edges)),
	}
	for _, e := range edges {
		if !e.Active {
			continue
		}
		g.Edges = append(g.Edges, e)
		g.Outgoing[e.Source.String()] = append(g.Outgoing[e.Source.String()], e)
		g.Incoming[e.Target.String()] = append(g.Incoming[e.Target.String()], e)
	}
	return g
}
