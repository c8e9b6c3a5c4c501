package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradehaven/wallet-api/internal/repository"
)

func TestReconciliation_CleanLedger(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	ledger := newLedger(store)
	svc := NewReconciliationService(store)
	ctx := context.Background()

	alice, _ := newTestUser(t, store, "alice")
	bob, _ := newTestUser(t, store, "bob")

	_, err := ledger.Deposit(ctx, alice.ID, 1000_00)
	require.NoError(t, err)
	_, err = ledger.Transfer(ctx, alice.ID, bob.Email, 400_00)
	require.NoError(t, err)
	_, err = ledger.Withdraw(ctx, bob.ID, 100_00)
	require.NoError(t, err)

	drift, err := store.Queries().ListWalletDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)

	require.NoError(t, svc.Run(ctx))
}

func TestReconciliation_DetectsDrift(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	ledger := newLedger(store)
	svc := NewReconciliationService(store)
	ctx := context.Background()

	alice, aliceAcc := newTestUser(t, store, "alice")
	_, err := ledger.Deposit(ctx, alice.ID, 1000_00)
	require.NoError(t, err)

	// Corrupt the stored balance behind the ledger's back.
	_, err = pool.Exec(ctx,
		"UPDATE accounts SET wallet_balance_cents = wallet_balance_cents + 500 WHERE id = $1",
		aliceAcc.ID)
	require.NoError(t, err)

	drift, err := store.Queries().ListWalletDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, aliceAcc.ID, drift[0].AccountID)
	assert.Equal(t, int64(1000_00+500), drift[0].StoredCents)
	assert.Equal(t, int64(1000_00), drift[0].ComputedCents)

	// The check reports; it never repairs.
	require.NoError(t, svc.Run(ctx))
	assert.Equal(t, int64(1000_00+500), walletBalance(t, pool, aliceAcc.ID))
}
