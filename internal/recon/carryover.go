package recon

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
)

// Carryovers returns the unsettled positive balances of the single most
// recent period starting before currentStart, keyed by group label. Only the
// immediate predecessor is consulted: anything older is expected to have
// flowed forward through that period already. Entries whose balance is zero
// or negative contribute nothing. An empty map (no predecessor, or nothing
// outstanding) is not an error.
func (s *Service) Carryovers(ctx context.Context, currentStart civil.Date) (map[string]int64, error) {
	prev, err := s.store.FindLatestPeriodBefore(ctx, currentStart)
	if err != nil {
		return nil, fmt.Errorf("Carryovers: finding previous period: %w", err)
	}
	if prev == nil {
		return map[string]int64{}, nil
	}

	entries, err := s.store.ListEntriesByPeriod(ctx, prev.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("Carryovers: listing entries of %s: %w", prev.PeriodID, err)
	}

	carry := make(map[string]int64)
	for _, e := range entries {
		if balance := ComputeBalance(e); balance > 0 {
			carry[e.GroupLabel] += balance
		}
	}
	return carry, nil
}
