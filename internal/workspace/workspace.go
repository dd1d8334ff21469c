// Package workspace holds the editable session state: categories with their
// materials and products.
//
// A Workspace is owned by one session and is safe for concurrent use. The
// calculation core never sees it directly; it receives a Snapshot copy.
package workspace

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/idgen"
)

// Workspace is the mutable state behind the four-step wizard.
type Workspace struct {
	mu    sync.RWMutex
	newID func() string

	categories []domain.Category
	materials  map[string][]domain.Material // keyed by category ID
	products   map[string][]domain.Product  // keyed by category ID
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithIDGenerator replaces idgen.New as the source of entity IDs.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workspace) {
		w.newID = fn
	}
}

// New creates an empty workspace.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		newID:     idgen.New,
		materials: make(map[string][]domain.Material),
		products:  make(map[string][]domain.Product),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddCategory adds a category. The name is trimmed and must be unique.
func (w *Workspace) AddCategory(name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, ErrEmptyName
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, c := range w.categories {
		if c.Name == name {
			return domain.Category{}, fmt.Errorf("%w: %q", ErrDuplicateCategory, name)
		}
	}

	c := domain.Category{ID: w.newID(), Name: name}
	w.categories = append(w.categories, c)
	w.materials[c.ID] = nil
	w.products[c.ID] = nil
	return c, nil
}

// RemoveCategory deletes a category together with its materials and products.
func (w *Workspace) RemoveCategory(categoryID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.indexOf(categoryID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}

	w.categories = append(w.categories[:idx], w.categories[idx+1:]...)
	delete(w.materials, categoryID)
	delete(w.products, categoryID)
	return nil
}

// MaxUnits bounds the material units of a whole workspace, so every per-category
// and global sum fits an int on all platforms.
const MaxUnits = math.MaxInt32

// AddMaterial adds a batch of material units to a category.
// A zero count means "not given" and defaults to one unit.
func (w *Workspace) AddMaterial(categoryID, name string, price float64, count int) (domain.Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Material{}, ErrEmptyName
	}
	if !validPrice(price) {
		return domain.Material{}, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	if count == 0 {
		count = 1
	}
	if count < 0 || count > MaxUnits {
		return domain.Material{}, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.indexOf(categoryID) < 0 {
		return domain.Material{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	if total := w.totalUnits(); count > MaxUnits-total {
		return domain.Material{}, fmt.Errorf("%w: %d units would exceed the workspace limit of %d (holding %d)",
			ErrInvalidCount, count, MaxUnits, total)
	}

	m := domain.Material{ID: w.newID(), Name: name, Price: price, Count: count}
	w.materials[categoryID] = append(w.materials[categoryID], m)
	return m, nil
}

// RemoveMaterial deletes one material from a category.
func (w *Workspace) RemoveMaterial(categoryID, materialID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.indexOf(categoryID) < 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}

	list := w.materials[categoryID]
	for i, m := range list {
		if m.ID == materialID {
			w.materials[categoryID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMaterialNotFound, materialID)
}

// AddProduct adds a possible payout to a category.
func (w *Workspace) AddProduct(categoryID, name string, price float64) (domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Product{}, ErrEmptyName
	}
	if !validPrice(price) {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.indexOf(categoryID) < 0 {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}

	p := domain.Product{ID: w.newID(), Name: name, Price: price}
	w.products[categoryID] = append(w.products[categoryID], p)
	return p, nil
}

// RemoveProduct deletes one product from a category.
func (w *Workspace) RemoveProduct(categoryID, productID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.indexOf(categoryID) < 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}

	list := w.products[categoryID]
	for i, p := range list {
		if p.ID == productID {
			w.products[categoryID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
}

// Reset clears every category, material and product.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.categories = nil
	w.materials = make(map[string][]domain.Material)
	w.products = make(map[string][]domain.Product)
}

// Categories returns the categories in insertion order.
func (w *Workspace) Categories() []domain.Category {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]domain.Category, len(w.categories))
	copy(out, w.categories)
	return out
}

// Materials returns a copy of a category's materials.
func (w *Workspace) Materials(categoryID string) []domain.Material {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]domain.Material, len(w.materials[categoryID]))
	copy(out, w.materials[categoryID])
	return out
}

// Products returns a copy of a category's products.
func (w *Workspace) Products(categoryID string) []domain.Product {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]domain.Product, len(w.products[categoryID]))
	copy(out, w.products[categoryID])
	return out
}

// Snapshot returns a deep copy of the workspace for the calculation core.
func (w *Workspace) Snapshot() domain.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := domain.Snapshot{
		Categories: make([]domain.Category, len(w.categories)),
		Materials:  make(map[string][]domain.Material, len(w.categories)),
		Products:   make(map[string][]domain.Product, len(w.categories)),
	}
	copy(snap.Categories, w.categories)
	for _, c := range w.categories {
		snap.Materials[c.ID] = append([]domain.Material(nil), w.materials[c.ID]...)
		snap.Products[c.ID] = append([]domain.Product(nil), w.products[c.ID]...)
	}
	return snap
}

// indexOf returns the position of a category, or -1. Caller holds the lock.
// totalUnits must be called with w.mu held.
func (w *Workspace) totalUnits() int {
	total := 0
	for _, list := range w.materials {
		for _, m := range list {
			total += m.Count
		}
	}
	return total
}

func (w *Workspace) indexOf(categoryID string) int {
	for i, c := range w.categories {
		if c.ID == categoryID {
			return i
		}
	}
	return -1
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 1)
}
