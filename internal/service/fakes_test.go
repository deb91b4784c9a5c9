package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/product-catalog-api/internal/model"
	"github.com/iliyamo/product-catalog-api/internal/queue"
	"github.com/iliyamo/product-catalog-api/internal/repository"
)

var errStoreDown = errors.New("store down")

type memUsers struct {
	mu   sync.Mutex
	next uint64
	byID map[uint64]*model.User
	fail error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]*model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, existing := range m.byID {
		if existing.Email == strings.ToLower(u.Email) {
			return repository.ErrEmailExists
		}
	}
	m.next++
	u.ID = m.next
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type memRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newMemRevocations() *memRevocations { return &memRevocations{ids: map[string]time.Time{}} }

func (m *memRevocations) Revoke(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[jti] = exp
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[jti]
	return ok, nil
}

// memCatalog backs both CategoryStore and ProductStore so deletes cascade.
type memCatalog struct {
	mu         sync.Mutex
	nextCat    uint64
	nextProd   uint64
	categories map[uint64]*model.Category
	products   map[uint64]*model.Product
	fail       error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{categories: map[uint64]*model.Category{}, products: map[uint64]*model.Product{}}
}

type memCategories struct{ *memCatalog }
type memProducts struct{ *memCatalog }

func (m memCategories) List(context.Context) ([]model.CategorySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := []model.CategorySummary{}
	for _, c := range m.categories {
		out = append(out, model.CategorySummary{ID: c.ID, Name: c.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func (m memCategories) GetByID(_ context.Context, id uint64) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memCategories) Exists(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	_, ok := m.categories[id]
	return ok, nil
}

func (m memCategories) Create(_ context.Context, name string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCat++
	now := time.Now().UTC()
	c := &model.Category{ID: m.nextCat, Name: name, CreatedAt: now, UpdatedAt: now}
	m.categories[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m memCategories) Update(_ context.Context, id uint64, name string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	c.Name = name
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (m memCategories) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	for pid, p := range m.products {
		if p.CategoryID == id {
			delete(m.products, pid)
		}
	}
	return nil
}

func (m memProducts) List(context.Context) ([]model.ProductListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ProductListItem{}
	for _, p := range m.products {
		out = append(out, model.ProductListItem{
			ID: p.ID, Name: p.Name, Description: p.Description, Stock: p.Stock, Price: p.Price,
			Weight: p.Weight, Available: p.Available, Category: m.categories[p.CategoryID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memProducts) GetByID(_ context.Context, id uint64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	cat := *m.categories[p.CategoryID]
	cp.Category = &cat
	return &cp, nil
}

func (m memProducts) Create(_ context.Context, p *model.Product) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[p.CategoryID]; !ok {
		return nil, repository.ErrCategoryNotFound
	}
	m.nextProd++
	cp := *p
	cp.ID = m.nextProd
	m.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m memProducts) Update(_ context.Context, id uint64, p *model.Product) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	cp.ID = id
	m.products[id] = &cp
	out := cp
	return &out, nil
}

func (m memProducts) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.CatalogEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.CatalogEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type countingPurger struct{ n int }

func (c *countingPurger) Purge(context.Context) error {
	c.n++
	return nil
}
