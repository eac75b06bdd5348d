package core

import (
	"fmt"
	"strings"
)

// Reserved categories used by system-generated transactions.
const (
	CategoryGoals    = "goals"
	CategoryDebts    = "debts"
	CategoryTransfer = "transfer"
)

type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
	CategorySystem  CategoryKind = "system"
)

// Category is the boundary-resolved description of a category id. Icon is an
// opaque handle the UI layer knows how to render.
type Category struct {
	ID    string       `json:"id" yaml:"id"`
	Name  string       `json:"name" yaml:"name"`
	Color string       `json:"color" yaml:"color"`
	Icon  string       `json:"icon" yaml:"icon"`
	Kind  CategoryKind `json:"kind" yaml:"kind"`
}

// CategoryRegistry is a closed, read-only set of categories. The ledger only
// holds category ids and resolves them here.
type CategoryRegistry struct {
	byID  map[string]Category
	order []string
}

// NewCategoryRegistry builds a registry. The reserved system categories are
// always present, whether or not cats declares them.
func NewCategoryRegistry(cats ...Category) (*CategoryRegistry, error) {
	r := &CategoryRegistry{byID: make(map[string]Category)}
	for _, c := range cats {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("category %q: empty id", c.Name)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("category %q: duplicate id", c.ID)
		}
		if c.Kind == "" {
			c.Kind = CategoryExpense
		}
		r.byID[c.ID] = c
		r.order = append(r.order, c.ID)
	}
	for _, c := range systemCategories {
		if _, ok := r.byID[c.ID]; !ok {
			r.byID[c.ID] = c
			r.order = append(r.order, c.ID)
		}
	}
	return r, nil
}

var systemCategories = []Category{
	{ID: CategoryGoals, Name: "Metas", Color: "#10b981", Icon: "target", Kind: CategorySystem},
	{ID: CategoryDebts, Name: "Dívidas", Color: "#ef4444", Icon: "credit-card", Kind: CategorySystem},
	{ID: CategoryTransfer, Name: "Transferência", Color: "#6366f1", Icon: "arrow-left-right", Kind: CategorySystem},
}

// DefaultCategories returns the built-in registry.
func DefaultCategories() *CategoryRegistry {
	r, err := NewCategoryRegistry(
		Category{ID: "salary", Name: "Salário", Color: "#22c55e", Icon: "wallet", Kind: CategoryIncome},
		Category{ID: "freelance", Name: "Freelance", Color: "#84cc16", Icon: "briefcase", Kind: CategoryIncome},
		Category{ID: "housing", Name: "Moradia", Color: "#f97316", Icon: "home", Kind: CategoryExpense},
		Category{ID: "food", Name: "Alimentação", Color: "#eab308", Icon: "utensils", Kind: CategoryExpense},
		Category{ID: "transport", Name: "Transporte", Color: "#3b82f6", Icon: "car", Kind: CategoryExpense},
		Category{ID: "health", Name: "Saúde", Color: "#ec4899", Icon: "heart", Kind: CategoryExpense},
		Category{ID: "leisure", Name: "Lazer", Color: "#a855f7", Icon: "smile", Kind: CategoryExpense},
		Category{ID: "bills", Name: "Contas", Color: "#64748b", Icon: "receipt", Kind: CategoryExpense},
		Category{ID: "other", Name: "Outros", Color: "#94a3b8", Icon: "circle", Kind: CategoryExpense},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *CategoryRegistry) Lookup(id string) (Category, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *CategoryRegistry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns the categories in registration order.
func (r *CategoryRegistry) All() []Category {
	out := make([]Category, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
