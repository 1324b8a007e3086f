// Package memory is a mutex-guarded in-memory backend implementing the same
// persistence ports as the PostgreSQL adapters. It backs the unit tests and a
// database-less dev mode. Transactions are serialized by the store lock and
// rolled back by snapshot, so the coordinator sees the same all-or-nothing
// semantics as the SQL backend.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/domain"
	"github.com/inkhouse/bookstock/internal/domain/entity"
	"github.com/inkhouse/bookstock/internal/domain/repository"
)

var (
	_ repository.TitleRepository      = titleView{}
	_ repository.WarehouseRepository  = warehouseView{}
	_ repository.MovementRepository   = movementView{}
	_ repository.ProjectionRepository = projectionView{}
	_ repository.ApprovalRepository   = approvalView{}
	_ movement.TxRunner               = (*Store)(nil)
)

// Store holds everything behind one RWMutex. Ports are exposed through the
// accessor methods so each keeps its own GetByID signature.
type Store struct {
	mu            sync.RWMutex
	titles        map[string]entity.Title
	warehouses    map[string]entity.Warehouse
	movements     map[string]*entity.MovementRecord
	movementOrder []string
	projections   map[string]*entity.InventoryProjection
	approvals     map[string]*entity.ApprovalRequest
}

// New creates an empty store.
func New() *Store {
	return &Store{
		titles:      make(map[string]entity.Title),
		warehouses:  make(map[string]entity.Warehouse),
		movements:   make(map[string]*entity.MovementRecord),
		projections: make(map[string]*entity.InventoryProjection),
		approvals:   make(map[string]*entity.ApprovalRequest),
	}
}

// Titles returns the title lookup port.
func (s *Store) Titles() repository.TitleRepository { return titleView{s} }

// Warehouses returns the warehouse lookup port.
func (s *Store) Warehouses() repository.WarehouseRepository { return warehouseView{s} }

// Movements returns the pool-bound movement port.
func (s *Store) Movements() repository.MovementRepository { return movementView{s} }

// Projections returns the pool-bound projection port.
func (s *Store) Projections() repository.ProjectionRepository { return projectionView{s} }

// Approvals returns the approval port.
func (s *Store) Approvals() repository.ApprovalRepository { return approvalView{s} }

func projectionKey(titleID, warehouseID string) string {
	return titleID + "::" + warehouseID
}

// AddTitle seeds a title lookup row.
func (s *Store) AddTitle(t entity.Title) entity.Title {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Active = true
	s.titles[t.ID] = t
	return t
}

// AddWarehouse seeds a warehouse lookup row.
func (s *Store) AddWarehouse(w entity.Warehouse) entity.Warehouse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	w.Active = true
	s.warehouses[w.ID] = w
	return w
}

// Run serializes the transaction under the store lock and restores a
// snapshot on failure, so a failed commit leaves zero visible partial state.
func (s *Store) Run(_ context.Context, fn func(
	movements repository.MovementRepository,
	projections repository.ProjectionRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapMovements := maps.Clone(s.movements)
	snapOrder := slices.Clone(s.movementOrder)
	snapProjections := make(map[string]*entity.InventoryProjection, len(s.projections))
	for k, v := range s.projections {
		cp := *v
		snapProjections[k] = &cp
	}

	tx := &txStore{s: s}
	if err := fn(tx, tx); err != nil {
		s.movements = snapMovements
		s.movementOrder = snapOrder
		s.projections = snapProjections
		return err
	}
	return nil
}

// Lookup views.

type titleView struct{ s *Store }

func (v titleView) GetByID(_ context.Context, id string) (*entity.Title, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	t, ok := v.s.titles[id]
	if !ok {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

type warehouseView struct{ s *Store }

func (v warehouseView) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	w, ok := v.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	cp := w
	return &cp, nil
}

// Pool-bound movement view.

type movementView struct{ s *Store }

func (v movementView) Create(_ context.Context, m *entity.MovementRecord) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.createMovementLocked(m)
}

func (v movementView) GetByID(_ context.Context, id string) (*entity.MovementRecord, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.getMovementLocked(id), nil
}

func (v movementView) ListByTitle(_ context.Context, titleID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.listMovementsLocked(matchesTitle(titleID), from, to, limit, offset), nil
}

func (v movementView) ListByWarehouse(_ context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.listMovementsLocked(matchesWarehouse(warehouseID), from, to, limit, offset), nil
}

func (v movementView) CountAdjustmentsSince(_ context.Context, titleID, warehouseID string, since time.Time) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.countAdjustmentsLocked(titleID, warehouseID, since), nil
}

func (v movementView) ReferenceExists(_ context.Context, referenceNumber string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.referenceExistsLocked(referenceNumber), nil
}

// Pool-bound projection view.

type projectionView struct{ s *Store }

func (v projectionView) Get(_ context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.getProjectionLocked(titleID, warehouseID), nil
}

func (v projectionView) GetForUpdate(ctx context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error) {
	return v.Get(ctx, titleID, warehouseID)
}

func (v projectionView) Upsert(_ context.Context, p *entity.InventoryProjection) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.upsertProjectionLocked(p)
	return nil
}

func (v projectionView) List(_ context.Context, titleID, warehouseID string, limit, offset int) ([]*entity.InventoryProjection, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.listProjectionsLocked(titleID, warehouseID, limit, offset), nil
}

// txStore gives the transaction callback lock-free access; the store lock is
// already held by Run.
type txStore struct {
	s *Store
}

func (t *txStore) Create(_ context.Context, m *entity.MovementRecord) error {
	return t.s.createMovementLocked(m)
}

func (t *txStore) GetByID(_ context.Context, id string) (*entity.MovementRecord, error) {
	return t.s.getMovementLocked(id), nil
}

func (t *txStore) ListByTitle(_ context.Context, titleID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error) {
	return t.s.listMovementsLocked(matchesTitle(titleID), from, to, limit, offset), nil
}

func (t *txStore) ListByWarehouse(_ context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.MovementRecord, error) {
	return t.s.listMovementsLocked(matchesWarehouse(warehouseID), from, to, limit, offset), nil
}

func (t *txStore) CountAdjustmentsSince(_ context.Context, titleID, warehouseID string, since time.Time) (int, error) {
	return t.s.countAdjustmentsLocked(titleID, warehouseID, since), nil
}

func (t *txStore) ReferenceExists(_ context.Context, referenceNumber string) (bool, error) {
	return t.s.referenceExistsLocked(referenceNumber), nil
}

func (t *txStore) Get(_ context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error) {
	return t.s.getProjectionLocked(titleID, warehouseID), nil
}

func (t *txStore) GetForUpdate(ctx context.Context, titleID, warehouseID string) (*entity.InventoryProjection, error) {
	// The store lock already serializes writers.
	return t.Get(ctx, titleID, warehouseID)
}

func (t *txStore) Upsert(_ context.Context, p *entity.InventoryProjection) error {
	t.s.upsertProjectionLocked(p)
	return nil
}

func (t *txStore) List(_ context.Context, titleID, warehouseID string, limit, offset int) ([]*entity.InventoryProjection, error) {
	return t.s.listProjectionsLocked(titleID, warehouseID, limit, offset), nil
}

// Locked internals shared by the pool-bound and tx-bound views.

func (s *Store) createMovementLocked(m *entity.MovementRecord) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if _, exists := s.movements[m.ID]; exists {
		return domain.ErrDuplicate
	}
	cp := *m
	s.movements[m.ID] = &cp
	s.movementOrder = append(s.movementOrder, m.ID)
	return nil
}

func (s *Store) getMovementLocked(id string) *entity.MovementRecord {
	m, ok := s.movements[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

func matchesTitle(titleID string) func(*entity.MovementRecord) bool {
	return func(m *entity.MovementRecord) bool { return m.TitleID == titleID }
}

func matchesWarehouse(warehouseID string) func(*entity.MovementRecord) bool {
	return func(m *entity.MovementRecord) bool {
		if m.WarehouseID == warehouseID {
			return true
		}
		if m.SourceWarehouseID != nil && *m.SourceWarehouseID == warehouseID {
			return true
		}
		if m.DestinationWarehouseID != nil && *m.DestinationWarehouseID == warehouseID {
			return true
		}
		return false
	}
}

func (s *Store) listMovementsLocked(match func(*entity.MovementRecord) bool, from, to *time.Time, limit, offset int) []*entity.MovementRecord {
	var result []*entity.MovementRecord
	for _, id := range s.movementOrder {
		m := s.movements[id]
		if !match(m) {
			continue
		}
		if from != nil && m.MovementDate.Before(*from) {
			continue
		}
		if to != nil && m.MovementDate.After(*to) {
			continue
		}
		cp := *m
		result = append(result, &cp)
	}
	slices.SortStableFunc(result, func(a, b *entity.MovementRecord) int {
		if a.MovementDate.Equal(b.MovementDate) {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
		return b.MovementDate.Compare(a.MovementDate)
	})
	return page(result, limit, offset)
}

func (s *Store) countAdjustmentsLocked(titleID, warehouseID string, since time.Time) int {
	var n int
	for _, m := range s.movements {
		if m.Type == entity.MovementTypeStockAdjustment &&
			m.TitleID == titleID && m.WarehouseID == warehouseID &&
			!m.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

func (s *Store) referenceExistsLocked(referenceNumber string) bool {
	for _, m := range s.movements {
		if m.ReferenceNumber == referenceNumber {
			return true
		}
	}
	return false
}

func (s *Store) getProjectionLocked(titleID, warehouseID string) *entity.InventoryProjection {
	p, ok := s.projections[projectionKey(titleID, warehouseID)]
	if !ok {
		return &entity.InventoryProjection{TitleID: titleID, WarehouseID: warehouseID}
	}
	cp := *p
	return &cp
}

func (s *Store) upsertProjectionLocked(p *entity.InventoryProjection) {
	cp := *p
	cp.UpdatedAt = time.Now()
	s.projections[projectionKey(p.TitleID, p.WarehouseID)] = &cp
}

func (s *Store) listProjectionsLocked(titleID, warehouseID string, limit, offset int) []*entity.InventoryProjection {
	var result []*entity.InventoryProjection
	for _, p := range s.projections {
		if titleID != "" && p.TitleID != titleID {
			continue
		}
		if warehouseID != "" && p.WarehouseID != warehouseID {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *entity.InventoryProjection) int {
		if a.TitleID == b.TitleID {
			return strings.Compare(a.WarehouseID, b.WarehouseID)
		}
		return strings.Compare(a.TitleID, b.TitleID)
	})
	return page(result, limit, offset)
}

// Approval view.

type approvalView struct{ s *Store }

func (v approvalView) Create(_ context.Context, a *entity.ApprovalRequest) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, exists := v.s.approvals[a.ID]; exists {
		return domain.ErrDuplicate
	}
	v.s.approvals[a.ID] = cloneApproval(a)
	return nil
}

func (v approvalView) GetByID(_ context.Context, id string) (*entity.ApprovalRequest, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	a, ok := v.s.approvals[id]
	if !ok {
		return nil, nil
	}
	return cloneApproval(a), nil
}

func (v approvalView) Update(_ context.Context, a *entity.ApprovalRequest) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.approvals[a.ID]; !ok {
		return domain.ErrNotFound
	}
	v.s.approvals[a.ID] = cloneApproval(a)
	return nil
}

func (v approvalView) ListPending(_ context.Context, limit, offset int) ([]*entity.ApprovalRequest, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.listApprovalsLocked(func(a *entity.ApprovalRequest) bool { return !a.Resolved() }, limit, offset), nil
}

func (v approvalView) ListTimedOut(_ context.Context, now time.Time, limit int) ([]*entity.ApprovalRequest, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.listApprovalsLocked(func(a *entity.ApprovalRequest) bool {
		return !a.Resolved() && !a.DeadlineAt.After(now)
	}, limit, 0), nil
}

func (s *Store) listApprovalsLocked(match func(*entity.ApprovalRequest) bool, limit, offset int) []*entity.ApprovalRequest {
	var result []*entity.ApprovalRequest
	for _, a := range s.approvals {
		if match(a) {
			result = append(result, cloneApproval(a))
		}
	}
	slices.SortFunc(result, func(a, b *entity.ApprovalRequest) int {
		if a.RequestedAt.Equal(b.RequestedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		return a.RequestedAt.Compare(b.RequestedAt)
	})
	return page(result, limit, offset)
}

func cloneApproval(a *entity.ApprovalRequest) *entity.ApprovalRequest {
	cp := *a
	cp.RiskFactors = slices.Clone(a.RiskFactors)
	return &cp
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
