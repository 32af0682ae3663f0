// Package memory is a thread-safe in-memory implementation of
// storage.Store. It is intended for tests and prototyping and deliberately
// keeps the implementation simple.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/riskgraph/internal/app/core/service"
	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	"github.com/R3E-Network/riskgraph/internal/app/domain/risk"
	"github.com/R3E-Network/riskgraph/internal/app/storage"
)

func edgeKey(tenantID string, source, target graph.Key) string {
	return tenantID + "|" + source.String() + "->" + target.String()
}

// Store is an in-memory persistence layer implementing storage.Store, plus
// a handful of seeding/mutation helpers tests use directly (PutRegulation,
// PutEdge, SetEdgeActive, ...) that a real store would expose through its
// own CRUD/HTTP surface, out of scope for this module.
type Store struct {
	mu sync.RWMutex

	tenants     map[string]graph.Tenant
	regulations map[string]graph.Regulation
	departments map[string]graph.Department
	budgets     map[string]graph.Budget
	services    map[string]graph.Service
	kpis        map[string]graph.KPI
	edges       map[string]graph.Edge

	impacts map[string][]risk.RegulationImpact
	scores  map[string]risk.Score
	audit   []risk.AuditEntry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tenants:     make(map[string]graph.Tenant),
		regulations: make(map[string]graph.Regulation),
		departments: make(map[string]graph.Department),
		budgets:     make(map[string]graph.Budget),
		services:    make(map[string]graph.Service),
		kpis:        make(map[string]graph.KPI),
		edges:       make(map[string]graph.Edge),
		impacts:     make(map[string][]risk.RegulationImpact),
		scores:      make(map[string]risk.Score),
	}
}

// Seeding / mutation helpers -------------------------------------------------

func (s *Store) PutTenant(t graph.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *Store) PutRegulation(r graph.Regulation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regulations[r.ID] = r
}

func (s *Store) PutDepartment(d graph.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[d.ID] = d
}

func (s *Store) PutBudget(b graph.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
}

func (s *Store) PutService(sv graph.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[sv.ID] = sv
}

func (s *Store) PutKPI(k graph.KPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kpis[k.ID] = k
}

// PutEdge inserts or replaces an edge, keyed by (tenant, source, target).
func (s *Store) PutEdge(e graph.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edgeKey(e.TenantID, e.Source, e.Target)] = e
}

// SetEdgeActive flips an edge's active flag, simulating a soft-delete.
func (s *Store) SetEdgeActive(tenantID string, source, target graph.Key, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey(tenantID, source, target)
	e, ok := s.edges[key]
	if !ok {
		return false
	}
	e.Active = active
	s.edges[key] = e
	return true
}

// Store interface implementation --------------------------------------------

func (s *Store) FindTenant(_ context.Context, id string) (graph.Tenant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	return t, ok, nil
}

func (s *Store) FindRegulation(_ context.Context, tenantID, id string) (graph.Regulation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regulations[id]
	if !ok || r.TenantID != tenantID {
		return graph.Regulation{}, false, nil
	}
	return r, true, nil
}

func (s *Store) FindDepartment(_ context.Context, tenantID, id string) (graph.Department, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.departments[id]
	if !ok || d.TenantID != tenantID {
		return graph.Department{}, false, nil
	}
	return d, true, nil
}

func (s *Store) FindBudget(_ context.Context, tenantID, id string) (graph.Budget, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok || b.TenantID != tenantID {
		return graph.Budget{}, false, nil
	}
	return b, true, nil
}

func (s *Store) FindService(_ context.Context, tenantID, id string) (graph.Service, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.services[id]
	if !ok || sv.TenantID != tenantID {
		return graph.Service{}, false, nil
	}
	return sv, true, nil
}

func (s *Store) FindKPI(_ context.Context, tenantID, id string) (graph.KPI, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.kpis[id]
	if !ok || k.TenantID != tenantID {
		return graph.KPI{}, false, nil
	}
	return k, true, nil
}

func (s *Store) ActiveEntitiesByType(_ context.Context, tenantID string, t graph.NodeType) (map[string]storage.EntityRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]storage.EntityRef)
	switch t {
	case graph.NodeRegulation:
		for _, r := range s.regulations {
			if r.TenantID == tenantID && r.Active {
				out[r.ID] = storage.EntityRef{ID: r.ID, DisplayName: displayOr(r.DisplayName, r.Code, r.ID), Active: r.Active}
			}
		}
	case graph.NodeDepartment:
		for _, d := range s.departments {
			if d.TenantID == tenantID && d.Active {
				out[d.ID] = storage.EntityRef{ID: d.ID, DisplayName: displayOr(d.DisplayName, d.Code, d.ID), Active: d.Active}
			}
		}
	case graph.NodeBudget:
		for _, b := range s.budgets {
			if b.TenantID == tenantID && b.Active {
				out[b.ID] = storage.EntityRef{ID: b.ID, DisplayName: displayOr(b.DisplayName, b.Code, b.ID), Active: b.Active}
			}
		}
	case graph.NodeService:
		for _, sv := range s.services {
			if sv.TenantID == tenantID && sv.Active {
				out[sv.ID] = storage.EntityRef{ID: sv.ID, DisplayName: displayOr(sv.DisplayName, sv.Code, sv.ID), Active: sv.Active}
			}
		}
	case graph.NodeKPI:
		for _, k := range s.kpis {
			if k.TenantID == tenantID && k.Active {
				out[k.ID] = storage.EntityRef{ID: k.ID, DisplayName: displayOr(k.DisplayName, k.Code, k.ID), Active: k.Active}
			}
		}
	}
	return out, nil
}

func displayOr(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func (s *Store) ActiveEdges(_ context.Context, tenantID string) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.Edge, 0)
	for _, e := range s.edges {
		if e.TenantID == tenantID && e.Active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source.String() != out[j].Source.String() {
			return out[i].Source.String() < out[j].Source.String()
		}
		return out[i].Target.String() < out[j].Target.String()
	})
	return out, nil
}

func (s *Store) ActiveRegulations(_ context.Context, tenantID string) ([]graph.Regulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.Regulation, 0)
	for _, r := range s.regulations {
		if r.TenantID == tenantID && r.Active && r.Status != graph.StatusDraft {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RegulationsActiveBefore(_ context.Context, tenantID string, before time.Time, excludingID string) ([]graph.Regulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.Regulation, 0)
	for _, r := range s.regulations {
		if r.TenantID != tenantID || !r.Active || r.Status == graph.StatusDraft {
			continue
		}
		if r.ID == excludingID {
			continue
		}
		if r.EffectiveDate.Before(before) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReplaceRegulationImpacts(_ context.Context, regulationID string, impacts []risk.RegulationImpact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]risk.RegulationImpact, len(impacts))
	copy(cp, impacts)
	s.impacts[regulationID] = cp
	return nil
}

func (s *Store) RegulationImpacts(regulationID string) []risk.RegulationImpact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]risk.RegulationImpact(nil), s.impacts[regulationID]...)
}

func scoreKey(tenantID string, entityType graph.NodeType, entityID string) string {
	return tenantID + "|" + string(entityType) + "|" + entityID
}

func (s *Store) UpsertRiskScore(_ context.Context, tenantID string, entityType graph.NodeType, entityID string, score risk.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[scoreKey(tenantID, entityType, entityID)] = score
	return nil
}

func (s *Store) RiskScore(tenantID string, entityType graph.NodeType, entityID string) (risk.Score, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[scoreKey(tenantID, entityType, entityID)]
	return sc, ok
}

func (s *Store) AppendAuditLog(_ context.Context, entry risk.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) AuditLog() []risk.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]risk.AuditEntry(nil), s.audit...)
}

// RecentAuditLog returns the most recent entries, newest last, clamped to
// [1, service.MaxListLimit]. A non-positive limit yields
// service.DefaultListLimit entries.
func (s *Store) RecentAuditLog(limit int) []risk.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = service.ClampLimit(limit, service.DefaultListLimit, service.MaxListLimit)
	if limit >= len(s.audit) {
		return append([]risk.AuditEntry(nil), s.audit...)
	}
	return append([]risk.AuditEntry(nil), s.audit[len(s.audit)-limit:]...)
}

var _ storage.Store = (*Store)(nil)
