// Package service holds small, dependency-free helpers shared by the core
// components (graph builder, risk aggregator, in-memory store): a
// self-description type and list-limit clamping.
package service

// Layer describes the architectural slice a component belongs to.
type Layer string

const (
	LayerIngress Layer = "ingress"
	LayerGraph   Layer = "graph"
	LayerCache   Layer = "cache"
	LayerEngine  Layer = "engine"
	LayerData    Layer = "data"
)

// Descriptor advertises a component's placement and capabilities for
// diagnostics and logging; it never changes runtime behavior.
type Descriptor struct {
	Name         string
	Layer        Layer
	Capabilities []string
}

// WithCapabilities returns a copy of d with additional capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}
