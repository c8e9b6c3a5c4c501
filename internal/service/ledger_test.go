package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradehaven/wallet-api/internal/domain"
	"github.com/tradehaven/wallet-api/internal/models"
	"github.com/tradehaven/wallet-api/internal/platform"
	"github.com/tradehaven/wallet-api/internal/repository"
)

func newLedger(store *repository.Store) *LedgerService {
	return NewLedgerService(store, platform.NewMockPlatformWithSeed(1))
}

func TestDeposit(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, account := newTestUser(t, store, "ayo")

	result, err := svc.Deposit(ctx, user.ID, 500_00)
	require.NoError(t, err)

	assert.Equal(t, int64(500_00), result.WalletBalanceCents)
	assert.Equal(t, domain.DefaultDemoBalanceCents, result.DemoBalanceCents)
	assert.Equal(t, domain.TxTypeDeposit, result.Transaction.Type)
	assert.Equal(t, domain.TxStatusCompleted, result.Transaction.Status)
	assert.Equal(t, int64(500_00), result.Transaction.AmountCents)
	assert.True(t, strings.HasPrefix(result.Transaction.Reference, "DEP-"))

	assert.Equal(t, int64(500_00), walletBalance(t, pool, account.ID))
	assert.Equal(t, domain.DefaultDemoBalanceCents, demoBalance(t, pool, account.ID))
}

func TestDeposit_InvalidAmount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, account := newTestUser(t, store, "ayo")

	_, err := svc.Deposit(ctx, user.ID, 0)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, user.ID, -100)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	assert.Equal(t, int64(0), walletBalance(t, pool, account.ID))
}

func TestDeposit_UnknownUser(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)

	_, err := svc.Deposit(context.Background(), uuid.New(), 100_00)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWithdraw(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, account := newTestUser(t, store, "ayo")
	_, err := svc.Deposit(ctx, user.ID, 1000_00)
	require.NoError(t, err)

	result, err := svc.Withdraw(ctx, user.ID, 400_00)
	require.NoError(t, err)

	assert.Equal(t, int64(600_00), result.WalletBalanceCents)
	assert.Equal(t, domain.TxTypeWithdraw, result.Transaction.Type)
	assert.True(t, strings.HasPrefix(result.Transaction.Reference, "WDR-"))
	assert.Equal(t, int64(600_00), walletBalance(t, pool, account.ID))
}

// A rejected withdrawal must leave the balance untouched and append no
// ledger rows, and the account must remain fully usable afterwards.
func TestWithdraw_InsufficientFundsScenario(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	alice, aliceAcc := newTestUser(t, store, "alice")
	bob, bobAcc := newTestUser(t, store, "bob")

	_, err := svc.Deposit(ctx, alice.ID, 1000_00)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, alice.ID, 500_00)
	require.NoError(t, err)
	assert.Equal(t, int64(1500_00), walletBalance(t, pool, aliceAcc.ID))

	_, err = svc.Withdraw(ctx, alice.ID, 2000_00)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, int64(1500_00), walletBalance(t, pool, aliceAcc.ID))

	var withdrawRows int
	err = pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND type = $2",
		aliceAcc.ID, domain.TxTypeWithdraw).Scan(&withdrawRows)
	require.NoError(t, err)
	assert.Equal(t, 0, withdrawRows)

	// The failed withdrawal must not wedge the account.
	_, err = svc.Transfer(ctx, alice.ID, bob.Email, 300_00)
	require.NoError(t, err)
	assert.Equal(t, int64(1200_00), walletBalance(t, pool, aliceAcc.ID))
	assert.Equal(t, int64(300_00), walletBalance(t, pool, bobAcc.ID))
}

func TestTransfer(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	alice, aliceAcc := newTestUser(t, store, "alice")
	bob, bobAcc := newTestUser(t, store, "bob")

	_, err := svc.Deposit(ctx, alice.ID, 100_00)
	require.NoError(t, err)

	result, err := svc.Transfer(ctx, alice.ID, bob.Email, 50_00)
	require.NoError(t, err)

	assert.Equal(t, int64(50_00), result.WalletBalanceCents)
	assert.Equal(t, domain.TxTypeTransferOut, result.Transaction.Type)
	require.NotNil(t, result.Transaction.RelatedUserID)
	assert.Equal(t, bob.ID, *result.Transaction.RelatedUserID)

	assert.Equal(t, int64(50_00), walletBalance(t, pool, aliceAcc.ID))
	assert.Equal(t, int64(50_00), walletBalance(t, pool, bobAcc.ID))

	// The credit leg references the sender.
	var relatedUserID uuid.UUID
	var inAmount int64
	err = pool.QueryRow(ctx,
		"SELECT related_user_id, amount_cents FROM transactions WHERE account_id = $1 AND type = $2",
		bobAcc.ID, domain.TxTypeTransferIn).Scan(&relatedUserID, &inAmount)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, relatedUserID)
	assert.Equal(t, int64(50_00), inAmount)
}

func TestTransfer_EmailResolutionIsCaseInsensitive(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	alice, _ := newTestUser(t, store, "alice")
	bob, bobAcc := newTestUser(t, store, "bob")

	_, err := svc.Deposit(ctx, alice.ID, 100_00)
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, alice.ID, strings.ToUpper(bob.Email), 25_00)
	require.NoError(t, err)
	assert.Equal(t, int64(25_00), walletBalance(t, pool, bobAcc.ID))
}

func TestTransfer_RecipientNotFound(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	alice, aliceAcc := newTestUser(t, store, "alice")
	_, err := svc.Deposit(ctx, alice.ID, 100_00)
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, alice.ID, "nobody@example.com", 50_00)
	assert.ErrorIs(t, err, models.ErrRecipientNotFound)
	assert.Equal(t, int64(100_00), walletBalance(t, pool, aliceAcc.ID))
}

func TestTransfer_SelfTransfer(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	alice, _ := newTestUser(t, store, "alice")
	_, err := svc.Deposit(ctx, alice.ID, 100_00)
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, alice.ID, alice.Email, 50_00)
	assert.ErrorIs(t, err, models.ErrSelfTransfer)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	alice, aliceAcc := newTestUser(t, store, "alice")
	bob, bobAcc := newTestUser(t, store, "bob")

	_, err := svc.Transfer(ctx, alice.ID, bob.Email, 50_00)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	assert.Equal(t, int64(0), walletBalance(t, pool, aliceAcc.ID))
	assert.Equal(t, int64(0), walletBalance(t, pool, bobAcc.ID))

	var rows int
	err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
}

// Concurrent opposing transfers must not deadlock and must conserve the
// total across both wallets.
func TestTransfer_ConcurrentOpposingTransfers(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	alice, aliceAcc := newTestUser(t, store, "alice")
	bob, bobAcc := newTestUser(t, store, "bob")

	_, err := svc.Deposit(ctx, alice.ID, 1000_00)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, bob.ID, 1000_00)
	require.NoError(t, err)

	const rounds = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := svc.Transfer(ctx, alice.ID, bob.Email, 10_00)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := svc.Transfer(ctx, bob.ID, alice.Email, 10_00)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	total := walletBalance(t, pool, aliceAcc.ID) + walletBalance(t, pool, bobAcc.ID)
	assert.Equal(t, int64(2000_00), total)
}

func TestTransferToPlatform_Wallet(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, account := newTestUser(t, store, "trader")
	_, err := svc.Deposit(ctx, user.ID, 500_00)
	require.NoError(t, err)

	result, err := svc.TransferToPlatform(ctx, user.ID, 200_00, domain.PlatformMT4, domain.AccountTypeWallet)
	require.NoError(t, err)

	assert.Equal(t, domain.TxTypePlatformLive, result.Transaction.Type)
	assert.Equal(t, int64(300_00), result.WalletBalanceCents)
	assert.Equal(t, domain.DefaultDemoBalanceCents, result.DemoBalanceCents)
	assert.Equal(t, domain.PlatformMT4, result.Transaction.Metadata["platform"])
	assert.Equal(t, domain.PlatformLeverage, result.Transaction.Metadata["leverage"])

	assert.Equal(t, int64(300_00), walletBalance(t, pool, account.ID))
	assert.Equal(t, domain.DefaultDemoBalanceCents, demoBalance(t, pool, account.ID))
}

func TestTransferToPlatform_Demo(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, account := newTestUser(t, store, "trader")

	result, err := svc.TransferToPlatform(ctx, user.ID, 1000_00, domain.PlatformMT5, domain.AccountTypeDemo)
	require.NoError(t, err)

	assert.Equal(t, domain.TxTypePlatformDemo, result.Transaction.Type)
	assert.Equal(t, int64(0), result.WalletBalanceCents)
	assert.Equal(t, domain.DefaultDemoBalanceCents-1000_00, result.DemoBalanceCents)

	// The wallet balance must be untouched by a demo transfer.
	assert.Equal(t, int64(0), walletBalance(t, pool, account.ID))
	assert.Equal(t, domain.DefaultDemoBalanceCents-1000_00, demoBalance(t, pool, account.ID))
}

func TestTransferToPlatform_InvalidInputs(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, _ := newTestUser(t, store, "trader")

	_, err := svc.TransferToPlatform(ctx, user.ID, 100_00, "cTrader", domain.AccountTypeWallet)
	assert.ErrorIs(t, err, models.ErrValidationFailed)

	_, err = svc.TransferToPlatform(ctx, user.ID, 100_00, domain.PlatformMT4, "margin")
	assert.ErrorIs(t, err, models.ErrValidationFailed)

	_, err = svc.TransferToPlatform(ctx, user.ID, 0, domain.PlatformMT4, domain.AccountTypeWallet)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestTransferToPlatform_InsufficientFunds(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, account := newTestUser(t, store, "trader")

	_, err := svc.TransferToPlatform(ctx, user.ID, 100_00, domain.PlatformMT4, domain.AccountTypeWallet)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, int64(0), walletBalance(t, pool, account.ID))
}

func TestTransferToPlatform_PlatformRejection(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)

	rejecting := platform.NewMockPlatformWithSeed(1)
	rejecting.FailureRate = 1.0
	svc := NewLedgerService(store, rejecting)
	ctx := context.Background()

	user, account := newTestUser(t, store, "trader")
	_, err := svc.Deposit(ctx, user.ID, 500_00)
	require.NoError(t, err)

	_, err = svc.TransferToPlatform(ctx, user.ID, 200_00, domain.PlatformMT4, domain.AccountTypeWallet)
	assert.ErrorIs(t, err, models.ErrPlatformRejected)

	// Rejection happens before any debit; the ledger stays untouched.
	assert.Equal(t, int64(500_00), walletBalance(t, pool, account.ID))

	var rows int
	err = pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND type = $2",
		account.ID, domain.TxTypePlatformLive).Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
}

func TestDeposit_WritesAuditRow(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	store := repository.NewStore(pool)
	svc := newLedger(store)
	ctx := context.Background()

	user, _ := newTestUser(t, store, "ayo")
	result, err := svc.Deposit(ctx, user.ID, 150_00)
	require.NoError(t, err)

	var action, nextState string
	err = pool.QueryRow(ctx,
		"SELECT action, next_state FROM audit_log WHERE entity_id = $1", result.Transaction.ID).
		Scan(&action, &nextState)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeDeposit, action)
	assert.Equal(t, "150.00", nextState)
}
