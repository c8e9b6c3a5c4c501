package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/observability"
)

// ReconciliationService verifies that stored wallet balances still agree
// with the balances recomputed from the transaction log. The account row
// is authoritative; the log is a derived audit trail, so a mismatch is
// reported and counted, never repaired automatically.
type ReconciliationService struct {
	store QueryStore
}

func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks every account and logs each drift it finds.
func (s *ReconciliationService) Run(ctx context.Context) error {
	drifts, err := s.store.Queries().ListWalletDrift(ctx)
	if err != nil {
		return fmt.Errorf("run wallet drift query: %w", err)
	}

	if len(drifts) == 0 {
		zap.L().Info("ledger reconciliation clean")
		return nil
	}

	for _, d := range drifts {
		observability.IncrementLedgerDrift()
		zap.L().Error("CRITICAL: wallet balance drift detected",
			zap.String("account_id", d.AccountID.String()),
			zap.Int64("stored_cents", d.StoredCents),
			zap.Int64("computed_cents", d.ComputedCents),
		)
	}
	return nil
}
