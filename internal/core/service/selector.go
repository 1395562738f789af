package service

import (
	"slices"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

// SelectSupplier picks the cheapest candidate. Ties go to whichever the
// directory listed first. Quantity is not checked here; the directory only
// returns candidates holding enough stock. The input slice is left untouched.
func SelectSupplier(candidates []domain.SupplierCandidate) (domain.SupplierCandidate, error) {
	if len(candidates) == 0 {
		return domain.SupplierCandidate{}, domain.ErrNoSupplierFound
	}

	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b domain.SupplierCandidate) int {
		return a.Price.Cmp(b.Price)
	})
	return sorted[0], nil
}
