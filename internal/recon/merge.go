package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/logger"
)

// RunAggregation recomputes the reconciliation entries of a period: actuals
// over the period window, carryover from the immediately preceding period,
// merged into whatever entries already exist. User-entered fields (expected
// amount, fee, note, status) are preserved; computed fields (actual,
// carryover, brand breakdown) are overwritten. Running it twice with the same
// underlying data is a no-op the second time.
//
// The per-label upserts are independent round-trips, not a transaction. A
// partial failure leaves some entries stale; re-running heals them.
func (s *Service) RunAggregation(ctx context.Context, periodID string) error {
	log := logger.FromContext(ctx)

	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("RunAggregation: loading period: %w", err)
	}
	if period == nil {
		return fmt.Errorf("RunAggregation: period %s not found", periodID)
	}
	if period.Status == infraBQ.PeriodStatusArchived {
		return fmt.Errorf("RunAggregation: period %s is archived", periodID)
	}

	actuals, err := s.ComputeActuals(ctx, period.PeriodStart, period.PeriodEnd)
	if err != nil {
		return fmt.Errorf("RunAggregation: %w", err)
	}
	carry, err := s.Carryovers(ctx, period.PeriodStart)
	if err != nil {
		return fmt.Errorf("RunAggregation: %w", err)
	}
	existing, err := s.store.ListEntriesByPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("RunAggregation: listing entries: %w", err)
	}

	actualByLabel := make(map[string]GroupActual, len(actuals))
	for _, a := range actuals {
		actualByLabel[a.GroupLabel] = a
	}
	entryByLabel := make(map[string]*infraBQ.EntryRow, len(existing))
	for _, e := range existing {
		entryByLabel[e.GroupLabel] = e
	}

	labels := make(map[string]struct{})
	for label := range actualByLabel {
		labels[label] = struct{}{}
	}
	for label := range carry {
		labels[label] = struct{}{}
	}
	for label := range entryByLabel {
		labels[label] = struct{}{}
	}

	ordered := make([]string, 0, len(labels))
	for label := range labels {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	for _, label := range ordered {
		actual := actualByLabel[label]
		carryAmount := carry[label]
		entry := entryByLabel[label]

		// A bucket with no sales, no carryover and no user input would
		// only add noise to the sheet.
		if actual.TotalAmount == 0 && carryAmount == 0 &&
			(entry == nil || (entry.ExpectedAmount == 0 && entry.FeeAmount == 0)) {
			continue
		}

		breakdown := bigquery.NullJSON{Valid: false}
		if len(actual.Brands) > 0 {
			buf, err := json.Marshal(actual.Brands)
			if err != nil {
				return fmt.Errorf("RunAggregation: encoding brand breakdown for %s: %w", label, err)
			}
			breakdown = bigquery.NullJSON{JSONVal: string(buf), Valid: true}
		}

		if entry != nil {
			if err := s.store.UpdateEntryComputed(ctx, entry.EntryID, actual.TotalAmount, carryAmount, breakdown); err != nil {
				return fmt.Errorf("RunAggregation: updating entry %s: %w", label, err)
			}
			continue
		}

		row := &infraBQ.EntryRow{
			EntryID:         uuid.New().String(),
			PeriodID:        periodID,
			UserID:          period.UserID,
			GroupLabel:      label,
			ActualAmount:    actual.TotalAmount,
			CarryoverAmount: carryAmount,
			Status:          infraBQ.EntryStatusPending,
			BrandBreakdown:  breakdown,
			CreatedTS:       time.Now().UTC(),
		}
		if err := s.store.InsertEntry(ctx, row); err != nil {
			return fmt.Errorf("RunAggregation: inserting entry %s: %w", label, err)
		}
	}

	if period.Status == infraBQ.PeriodStatusOpen {
		if err := s.store.UpdatePeriodStatus(ctx, periodID, infraBQ.PeriodStatusReconciling, nil); err != nil {
			return fmt.Errorf("RunAggregation: updating period status: %w", err)
		}
	}

	log.Info().
		Str("period_id", periodID).
		Int("buckets", len(ordered)).
		Int("actual_buckets", len(actualByLabel)).
		Int("carryover_buckets", len(carry)).
		Msg("aggregation complete")

	return nil
}
