package recon

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/normalize"
)

// EntryView is a stored entry plus its derived read-side fields.
type EntryView struct {
	*infraBQ.EntryRow
	Balance       int64  `json:"balance"`
	PaymentStatus string `json:"payment_status"`
}

// PeriodEntries returns the entries of a period with balance and payment
// status derived, ordered by payee (Japanese collation) then category.
func (s *Service) PeriodEntries(ctx context.Context, periodID string) ([]EntryView, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("PeriodEntries: loading period: %w", err)
	}
	if period == nil {
		return nil, fmt.Errorf("PeriodEntries: period %s not found", periodID)
	}

	rows, err := s.store.ListEntriesByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("PeriodEntries: listing entries: %w", err)
	}

	var due *civil.Date
	if period.ExpectedPaymentDate.Valid {
		d := period.ExpectedPaymentDate.Date
		due = &d
	}

	today := time.Now()
	views := make([]EntryView, 0, len(rows))
	for _, e := range rows {
		views = append(views, EntryView{
			EntryRow:      e,
			Balance:       ComputeBalance(e),
			PaymentStatus: DerivePaymentStatus(e, due, today),
		})
	}

	col := newCollator()
	sort.Slice(views, func(i, j int) bool {
		pi, ci := SplitGroupLabel(views[i].GroupLabel)
		pj, cj := SplitGroupLabel(views[j].GroupLabel)
		if c := col.CompareString(pi, pj); c != 0 {
			return c < 0
		}
		return normalize.CategoryPriority(normalize.PaymentCategory(ci)) <
			normalize.CategoryPriority(normalize.PaymentCategory(cj))
	})

	return views, nil
}
