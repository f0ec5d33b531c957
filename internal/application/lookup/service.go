// Package lookup keeps the reference data in memory so names and ids can be
// resolved without a round trip per call.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yoma-opportunity/internal/domain"
)

type Service interface {
	// Load reads every kind from the store. Reload is the same call made
	// after startup.
	Load(ctx context.Context) error
	Reload(ctx context.Context) error
	GetByID(kind domain.LookupKind, id string) (*domain.Lookup, error)
	// GetByName matches case-insensitively.
	GetByName(kind domain.LookupKind, name string) (*domain.Lookup, error)
	// List returns every row of kind ordered by name.
	List(kind domain.LookupKind) []domain.Lookup
	// Contains returns the rows of kind whose name contains value.
	Contains(kind domain.LookupKind, value string) []domain.Lookup
}

type lookupStore interface {
	ListByKind(ctx context.Context, kind domain.LookupKind) ([]domain.Lookup, error)
}

type table struct {
	rows   []domain.Lookup
	byID   map[string]int
	byName map[string]int
}

type service struct {
	repo lookupStore

	mu     sync.RWMutex
	tables map[domain.LookupKind]*table
}

type ServiceDeps struct {
	LookupRepo lookupStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.LookupRepo, tables: map[domain.LookupKind]*table{}}
}

func (s *service) Load(ctx context.Context) error {
	tables := make(map[domain.LookupKind]*table, len(domain.LookupKinds))
	for _, kind := range domain.LookupKinds {
		rows, err := s.repo.ListByKind(ctx, kind)
		if err != nil {
			return fmt.Errorf("load %s: %w", kind, err)
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
		t := &table{rows: rows, byID: make(map[string]int, len(rows)), byName: make(map[string]int, len(rows))}
		for i, r := range rows {
			t.byID[r.ID] = i
			t.byName[strings.ToLower(r.Name)] = i
		}
		tables[kind] = t
	}
	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
	return nil
}

func (s *service) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *service) table(kind domain.LookupKind) *table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[kind]
}

func (s *service) GetByID(kind domain.LookupKind, id string) (*domain.Lookup, error) {
	if t := s.table(kind); t != nil {
		if i, ok := t.byID[id]; ok {
			l := t.rows[i]
			return &l, nil
		}
	}
	return nil, fmt.Errorf("%s with id '%s' does not exist: %w", kind, id, domain.ErrNotFound)
}

func (s *service) GetByName(kind domain.LookupKind, name string) (*domain.Lookup, error) {
	if t := s.table(kind); t != nil {
		if i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
			l := t.rows[i]
			return &l, nil
		}
	}
	return nil, fmt.Errorf("%s with name '%s' does not exist: %w", kind, name, domain.ErrNotFound)
}

func (s *service) List(kind domain.LookupKind) []domain.Lookup {
	t := s.table(kind)
	if t == nil {
		return nil
	}
	out := make([]domain.Lookup, len(t.rows))
	copy(out, t.rows)
	return out
}

func (s *service) Contains(kind domain.LookupKind, value string) []domain.Lookup {
	t := s.table(kind)
	v := strings.ToLower(strings.TrimSpace(value))
	if t == nil || v == "" {
		return nil
	}
	var out []domain.Lookup
	for _, r := range t.rows {
		if strings.Contains(strings.ToLower(r.Name), v) {
			out = append(out, r)
		}
	}
	return out
}
