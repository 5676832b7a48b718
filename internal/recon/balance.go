package recon

import (
	"time"

	"cloud.google.com/go/civil"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/normalize"
)

// ComputeBalance returns the outstanding amount of an entry in whole yen:
// what was sold plus what was still owed from last period, minus what was
// received and what the payee deducted as fees. Exact int64 arithmetic.
func ComputeBalance(e *infraBQ.EntryRow) int64 {
	return e.ActualAmount + e.CarryoverAmount - e.ExpectedAmount - e.FeeAmount
}

// DerivePaymentStatus classifies an entry's payment state for display. Rules
// in order:
//
//   - received: a deposit arrived and the balance is exactly zero
//   - partial: a deposit arrived but a positive balance remains
//   - overdue: lump-sum bucket, the period's due date is strictly past,
//     sales exist and nothing has been received
//   - pending: everything else
//
// The result is recomputed on every read. written_off never comes out of
// this function; it only survives from manually set historical data.
func DerivePaymentStatus(e *infraBQ.EntryRow, expectedPaymentDate *civil.Date, today time.Time) string {
	balance := ComputeBalance(e)

	if e.ExpectedAmount > 0 && balance == 0 {
		return PaymentStatusReceived
	}
	if e.ExpectedAmount > 0 && balance > 0 {
		return PaymentStatusPartial
	}

	_, category := SplitGroupLabel(e.GroupLabel)
	if category == string(normalize.CategoryLumpSum) &&
		expectedPaymentDate != nil &&
		expectedPaymentDate.Before(civil.DateOf(today)) &&
		e.ExpectedAmount == 0 &&
		e.ActualAmount > 0 {
		return PaymentStatusOverdue
	}

	return PaymentStatusPending
}

// StatusForExpectedEdit recomputes the manual reconciliation status when the
// user enters a deposit amount: equal to the computed actual is matched, any
// other positive value is mismatched, zero resets to pending.
func StatusForExpectedEdit(expectedAmount, actualAmount int64) string {
	switch {
	case expectedAmount == actualAmount:
		return infraBQ.EntryStatusMatched
	case expectedAmount > 0:
		return infraBQ.EntryStatusMismatched
	default:
		return infraBQ.EntryStatusPending
	}
}

// StatusForNoteEdit marks an entry resolved when a note is written; clearing
// the note keeps whatever status the entry already had.
func StatusForNoteEdit(note, currentStatus string) string {
	if note != "" {
		return infraBQ.EntryStatusResolved
	}
	return currentStatus
}
