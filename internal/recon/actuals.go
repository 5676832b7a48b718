package recon

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ktsuji/card-recon/internal/groups"
	"github.com/ktsuji/card-recon/internal/normalize"
)

// newCollator returns a collator for Japanese-aware label ordering.
// collate.Collator is not safe for concurrent use, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Japanese)
}

// ComputeActuals aggregates all transactions dated in [start, end] inclusive
// into payee-and-category buckets. Amounts are signed (取消 and 返品 count
// negative) and buckets whose total lands on exactly zero are dropped.
// Results are ordered by payee with Japanese collation, then by the fixed
// category order. Pure read and compute: nothing is written.
func (s *Service) ComputeActuals(ctx context.Context, start, end civil.Date) ([]GroupActual, error) {
	groupRows, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("ComputeActuals: listing groups: %w", err)
	}
	resolver := groups.NewResolver(groupRows)

	txns, err := s.store.QueryTransactionsByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("ComputeActuals: querying transactions: %w", err)
	}

	totals := make(map[string]int64)
	brandTotals := make(map[string]map[string]int64)

	for _, t := range txns {
		rawBrand := ""
		if t.CardBrand.Valid {
			rawBrand = t.CardBrand.StringVal
		}
		payee := resolver.Resolve(rawBrand)

		paymentType := ""
		if t.PaymentType.Valid {
			paymentType = t.PaymentType.StringVal
		}
		category := normalize.ClassifyPaymentCategory(paymentType, t.InstallmentCount)

		label := MakeGroupLabel(payee, string(category))
		amount := t.SignedAmount()

		totals[label] += amount

		brandKey := normalize.CardBrand(rawBrand)
		if brandKey == "" {
			brandKey = groups.UnknownBrand
		}
		if brandTotals[label] == nil {
			brandTotals[label] = make(map[string]int64)
		}
		brandTotals[label][brandKey] += amount
	}

	col := newCollator()

	var results []GroupActual
	for label, total := range totals {
		if total == 0 {
			continue
		}

		var brands []BrandAmount
		for brand, amount := range brandTotals[label] {
			brands = append(brands, BrandAmount{Brand: brand, Amount: amount})
		}
		sort.Slice(brands, func(i, j int) bool {
			return col.CompareString(brands[i].Brand, brands[j].Brand) < 0
		})

		results = append(results, GroupActual{
			GroupLabel:  label,
			TotalAmount: total,
			Brands:      brands,
		})
	}

	sortGroupActuals(col, results)
	return results, nil
}

// sortGroupActuals orders buckets by payee (Japanese collation) and then by
// the fixed category display order.
func sortGroupActuals(col *collate.Collator, actuals []GroupActual) {
	sort.Slice(actuals, func(i, j int) bool {
		pi, ci := SplitGroupLabel(actuals[i].GroupLabel)
		pj, cj := SplitGroupLabel(actuals[j].GroupLabel)
		if c := col.CompareString(pi, pj); c != 0 {
			return c < 0
		}
		return normalize.CategoryPriority(normalize.PaymentCategory(ci)) <
			normalize.CategoryPriority(normalize.PaymentCategory(cj))
	})
}
