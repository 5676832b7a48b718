package recon

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/logger"
)

// endOfMonth returns the last day of the given month.
func endOfMonth(year int, month time.Month) civil.Date {
	t := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return civil.DateOf(t)
}

// periodWindow computes the inclusive date window and the contractual payout
// date for a billing window kind. First-half sales pay out at the end of the
// same month; second-half and whole-month sales pay out on the 15th of the
// following month.
func periodWindow(year int, month time.Month, periodType string) (start, end, payout civil.Date, err error) {
	eom := endOfMonth(year, month)
	next := time.Date(year, month+1, 15, 0, 0, 0, 0, time.UTC)

	switch periodType {
	case infraBQ.PeriodTypeFirstHalf:
		start = civil.Date{Year: year, Month: month, Day: 1}
		end = civil.Date{Year: year, Month: month, Day: 15}
		payout = eom
	case infraBQ.PeriodTypeSecondHalf:
		start = civil.Date{Year: year, Month: month, Day: 16}
		end = eom
		payout = civil.DateOf(next)
	case infraBQ.PeriodTypeFullMonth:
		start = civil.Date{Year: year, Month: month, Day: 1}
		end = eom
		payout = civil.DateOf(next)
	default:
		err = fmt.Errorf("unknown period type %q", periodType)
	}
	return start, end, payout, err
}

// periodLabel builds the display label, e.g. 2026年3月前半分.
func periodLabel(year int, month time.Month, periodType string) string {
	base := fmt.Sprintf("%d年%d月", year, int(month))
	switch periodType {
	case infraBQ.PeriodTypeFirstHalf:
		return base + "前半分"
	case infraBQ.PeriodTypeSecondHalf:
		return base + "後半分"
	default:
		return base + "分"
	}
}

// CreatePeriod opens a new billing window for the given month. The window
// bounds, payout due date and label are all derived from the period type.
func (s *Service) CreatePeriod(ctx context.Context, userID string, year int, month time.Month, periodType string) (*infraBQ.PeriodRow, error) {
	start, end, payout, err := periodWindow(year, month, periodType)
	if err != nil {
		return nil, fmt.Errorf("CreatePeriod: %w", err)
	}

	row := &infraBQ.PeriodRow{
		PeriodID:    uuid.New().String(),
		UserID:      userID,
		PeriodLabel: periodLabel(year, month, periodType),
		PeriodStart: start,
		PeriodEnd:   end,
		PeriodType:  periodType,
		ExpectedPaymentDate: bigquery.NullDate{
			Date:  payout,
			Valid: true,
		},
		Status:    infraBQ.PeriodStatusOpen,
		CreatedTS: time.Now().UTC(),
	}

	if err := s.store.InsertPeriod(ctx, row); err != nil {
		return nil, fmt.Errorf("CreatePeriod: %w", err)
	}
	return row, nil
}

// ArchivePeriod finalizes a period: every transaction dated inside the window
// that no period has claimed yet gets stamped with this period's id, then the
// period is marked archived with a confirmation timestamp. The two steps are
// separate round-trips; if the second fails the stamps stay in place and
// archiving can be retried.
//
// Requires at least one reconciliation entry, so an untouched period cannot
// be archived by accident.
func (s *Service) ArchivePeriod(ctx context.Context, periodID string) error {
	log := logger.FromContext(ctx)

	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("ArchivePeriod: loading period: %w", err)
	}
	if period == nil {
		return fmt.Errorf("ArchivePeriod: period %s not found", periodID)
	}
	if period.Status == infraBQ.PeriodStatusArchived {
		return fmt.Errorf("ArchivePeriod: period %s is already archived", periodID)
	}

	entries, err := s.store.ListEntriesByPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("ArchivePeriod: listing entries: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("ArchivePeriod: period %s has no entries, run aggregation first", periodID)
	}

	if err := s.store.StampArchivedPeriod(ctx, periodID, period.PeriodStart, period.PeriodEnd); err != nil {
		return fmt.Errorf("ArchivePeriod: stamping transactions: %w", err)
	}

	now := time.Now().UTC()
	if err := s.store.UpdatePeriodStatus(ctx, periodID, infraBQ.PeriodStatusArchived, &now); err != nil {
		return fmt.Errorf("ArchivePeriod: updating status: %w", err)
	}

	log.Info().
		Str("period_id", periodID).
		Str("period_label", period.PeriodLabel).
		Msg("period archived")

	return nil
}

// DeletePeriod removes a non-archived period together with its entries.
// Archived periods are the audit trail and cannot be deleted. Transaction
// claims pointing at the period are cleared first, which also cleans up after
// an archive attempt that stamped transactions but failed before the status
// flip.
func (s *Service) DeletePeriod(ctx context.Context, periodID string) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("DeletePeriod: loading period: %w", err)
	}
	if period == nil {
		return fmt.Errorf("DeletePeriod: period %s not found", periodID)
	}
	if period.Status == infraBQ.PeriodStatusArchived {
		return fmt.Errorf("DeletePeriod: period %s is archived and cannot be deleted", periodID)
	}

	if err := s.store.ClearArchivedPeriod(ctx, periodID); err != nil {
		return fmt.Errorf("DeletePeriod: clearing transaction claims: %w", err)
	}
	if err := s.store.DeleteEntriesByPeriod(ctx, periodID); err != nil {
		return fmt.Errorf("DeletePeriod: deleting entries: %w", err)
	}
	if err := s.store.DeletePeriod(ctx, periodID); err != nil {
		return fmt.Errorf("DeletePeriod: %w", err)
	}
	return nil
}

// EntryEdit carries the user-editable entry fields of a PATCH. Nil means the
// field is untouched.
type EntryEdit struct {
	ExpectedAmount *int64
	FeeAmount      *int64
	Note           *string
}

// EditEntry applies a user edit to an entry and recomputes its manual status:
// an expected-amount change re-matches against the computed actual, writing a
// note marks the entry resolved. Entries of archived periods are immutable.
func (s *Service) EditEntry(ctx context.Context, entryID string, edit EntryEdit) (*infraBQ.EntryRow, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("EditEntry: loading entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("EditEntry: entry %s not found", entryID)
	}

	period, err := s.store.GetPeriod(ctx, entry.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("EditEntry: loading period: %w", err)
	}
	if period != nil && period.Status == infraBQ.PeriodStatusArchived {
		return nil, fmt.Errorf("EditEntry: period %s is archived", entry.PeriodID)
	}

	status := entry.Status
	if edit.ExpectedAmount != nil {
		entry.ExpectedAmount = *edit.ExpectedAmount
		status = StatusForExpectedEdit(entry.ExpectedAmount, entry.ActualAmount)
	}
	if edit.FeeAmount != nil {
		entry.FeeAmount = *edit.FeeAmount
	}
	if edit.Note != nil {
		entry.Note = bigquery.NullString{StringVal: *edit.Note, Valid: *edit.Note != ""}
		status = StatusForNoteEdit(*edit.Note, status)
	}
	entry.Status = status

	if err := s.store.UpdateEntryUserFields(ctx, entryID, entry.ExpectedAmount, entry.FeeAmount, entry.Status, entry.Note); err != nil {
		return nil, fmt.Errorf("EditEntry: %w", err)
	}
	return entry, nil
}
