package reconcile

import (
	"slices"

	"github.com/xenking/product-desk/internal/domain/product"
)

// Mutation is a pending local change layered over confirmed state. The set of
// variants is closed: SetStatus, Add, Remove and SetAllStatus.
type Mutation interface {
	apply(ps []product.Product) []product.Product
}

// SetStatus changes the status of one product.
type SetStatus struct {
	ID     string
	Status product.Status
}

// Add prepends a product, typically a provisional record.
type Add struct {
	Product product.Product
}

// Remove drops a product.
type Remove struct {
	ID string
}

// SetAllStatus changes the status of every listed product.
type SetAllStatus struct {
	IDs    []string
	Status product.Status
}

var (
	_ Mutation = SetStatus{}
	_ Mutation = Add{}
	_ Mutation = Remove{}
	_ Mutation = SetAllStatus{}
)

func (m SetStatus) apply(ps []product.Product) []product.Product {
	out := slices.Clone(ps)
	for i := range out {
		if out[i].ID == m.ID {
			out[i].Status = m.Status
		}
	}
	return out
}

func (m Add) apply(ps []product.Product) []product.Product {
	out := make([]product.Product, 0, len(ps)+1)
	out = append(out, m.Product)
	return append(out, ps...)
}

func (m Remove) apply(ps []product.Product) []product.Product {
	out := make([]product.Product, 0, len(ps))
	for _, p := range ps {
		if p.ID != m.ID {
			out = append(out, p)
		}
	}
	return out
}

func (m SetAllStatus) apply(ps []product.Product) []product.Product {
	ids := make(map[string]struct{}, len(m.IDs))
	for _, id := range m.IDs {
		ids[id] = struct{}{}
	}
	out := slices.Clone(ps)
	for i := range out {
		if _, ok := ids[out[i].ID]; ok {
			out[i].Status = m.Status
		}
	}
	return out
}

// Derive applies muts in order over confirmed and dedups the result by id,
// keeping the first occurrence. The input slice is never modified.
func Derive(confirmed []product.Product, muts ...Mutation) []product.Product {
	out := slices.Clone(confirmed)
	for _, m := range muts {
		out = m.apply(out)
	}
	return Dedup(out)
}

// Dedup returns ps without repeated ids. The first occurrence wins.
func Dedup(ps []product.Product) []product.Product {
	seen := make(map[string]struct{}, len(ps))
	out := make([]product.Product, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Filter selects which products are rendered.
type Filter struct {
	ApprovedOnly bool
}

func (f Filter) match(p product.Product) bool {
	return !f.ApprovedOnly || p.Status == product.StatusApproved
}

func replaceByID(ps []product.Product, p product.Product) []product.Product {
	out := slices.Clone(ps)
	for i := range out {
		if out[i].ID == p.ID {
			out[i] = p
		}
	}
	return out
}

func indexByID(ps []product.Product, id string) int {
	return slices.IndexFunc(ps, func(p product.Product) bool { return p.ID == id })
}
