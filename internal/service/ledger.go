package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/domain"
	"github.com/tradehaven/wallet-api/internal/models"
	"github.com/tradehaven/wallet-api/internal/observability"
	"github.com/tradehaven/wallet-api/internal/platform"
	"github.com/tradehaven/wallet-api/internal/repository"
)

// LedgerService performs the balance-mutating wallet operations. Every
// operation runs inside one database transaction: lock the account row(s),
// validate, update balances, append transaction row(s), append an audit
// row. Any failure rolls the whole scope back.
type LedgerService struct {
	store    QueryStore
	platform platform.Platform
	audit    *AuditService
}

func NewLedgerService(store QueryStore, plat platform.Platform) *LedgerService {
	return &LedgerService{
		store:    store,
		platform: plat,
		audit:    NewAuditService(store),
	}
}

// OperationResult reports the outcome of one ledger operation: the
// transaction row written for the acting account and the balances after
// commit.
type OperationResult struct {
	Transaction        *models.Transaction `json:"transaction"`
	WalletBalanceCents int64               `json:"wallet_balance_cents"`
	DemoBalanceCents   int64               `json:"demo_balance_cents"`
}

// Deposit credits the wallet balance. No payment processor is modeled; the
// funds are assumed to already exist.
func (s *LedgerService) Deposit(ctx context.Context, userID uuid.UUID, amountCents int64) (*OperationResult, error) {
	if amountCents <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var result OperationResult
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		account, err := s.lockAccountByUser(ctx, q, userID)
		if err != nil {
			return err
		}

		rows, err := q.AddToWalletBalance(ctx, account.ID, amountCents)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "deposit balance update"); err != nil {
			return err
		}

		txn := &models.Transaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			Type:        domain.TxTypeDeposit,
			AmountCents: amountCents,
			Status:      domain.TxStatusCompleted,
			Reference:   domain.NewReference(domain.ReferencePrefix(domain.TxTypeDeposit)),
		}
		if err := q.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		if err := s.writeBalanceAudit(ctx, q, txn, userID,
			account.WalletBalanceCents, account.WalletBalanceCents+amountCents); err != nil {
			return err
		}

		result = OperationResult{
			Transaction:        txn,
			WalletBalanceCents: account.WalletBalanceCents + amountCents,
			DemoBalanceCents:   account.DemoBalanceCents,
		}
		return nil
	})
	if err != nil {
		observability.IncrementLedgerOperation(domain.TxTypeDeposit, "failed")
		return nil, err
	}
	observability.IncrementLedgerOperation(domain.TxTypeDeposit, "completed")
	return &result, nil
}

// Withdraw debits the wallet balance, failing with ErrInsufficientFunds
// when the balance is smaller than the requested amount.
func (s *LedgerService) Withdraw(ctx context.Context, userID uuid.UUID, amountCents int64) (*OperationResult, error) {
	if amountCents <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var result OperationResult
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		account, err := s.lockAccountByUser(ctx, q, userID)
		if err != nil {
			return err
		}
		if account.WalletBalanceCents < amountCents {
			return models.ErrInsufficientFunds
		}

		rows, err := q.AddToWalletBalance(ctx, account.ID, -amountCents)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "withdraw balance update"); err != nil {
			return err
		}

		txn := &models.Transaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			Type:        domain.TxTypeWithdraw,
			AmountCents: amountCents,
			Status:      domain.TxStatusCompleted,
			Reference:   domain.NewReference(domain.ReferencePrefix(domain.TxTypeWithdraw)),
		}
		if err := q.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		if err := s.writeBalanceAudit(ctx, q, txn, userID,
			account.WalletBalanceCents, account.WalletBalanceCents-amountCents); err != nil {
			return err
		}

		result = OperationResult{
			Transaction:        txn,
			WalletBalanceCents: account.WalletBalanceCents - amountCents,
			DemoBalanceCents:   account.DemoBalanceCents,
		}
		return nil
	})
	if err != nil {
		observability.IncrementLedgerOperation(domain.TxTypeWithdraw, "failed")
		return nil, err
	}
	observability.IncrementLedgerOperation(domain.TxTypeWithdraw, "completed")
	return &result, nil
}

// Transfer moves funds from the caller's wallet to the account resolved
// from toEmail. Both balance mutations and both transaction rows commit
// atomically; the rows cross-reference the counterparty via
// related_user_id and carry matching amounts.
func (s *LedgerService) Transfer(ctx context.Context, userID uuid.UUID, toEmail string, amountCents int64) (*OperationResult, error) {
	if amountCents <= 0 {
		return nil, models.ErrInvalidAmount
	}
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return nil, models.ErrValidationFailed
	}

	var result OperationResult
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		senderAccountID, err := q.GetAccountIDByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("resolve sender account: %w", err)
		}

		recipientAccountID, recipientUserID, err := q.GetAccountIDByEmail(ctx, toEmail)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrRecipientNotFound
			}
			return fmt.Errorf("resolve recipient account: %w", err)
		}
		if recipientUserID == userID {
			return models.ErrSelfTransfer
		}

		// Lock both rows in a consistent order to prevent deadlocks
		// between opposing concurrent transfers.
		firstID, secondID := senderAccountID, recipientAccountID
		if firstID.String() > secondID.String() {
			firstID, secondID = secondID, firstID
		}
		first, err := q.LockAccount(ctx, firstID)
		if err != nil {
			return fmt.Errorf("lock account %s: %w", firstID, err)
		}
		second, err := q.LockAccount(ctx, secondID)
		if err != nil {
			return fmt.Errorf("lock account %s: %w", secondID, err)
		}

		sender, recipient := first, second
		if first.ID != senderAccountID {
			sender, recipient = second, first
		}

		if sender.WalletBalanceCents < amountCents {
			return models.ErrInsufficientFunds
		}

		if rows, err := q.AddToWalletBalance(ctx, sender.ID, -amountCents); err != nil {
			return err
		} else if err := requireExactlyOne(rows, "transfer debit"); err != nil {
			return err
		}
		if rows, err := q.AddToWalletBalance(ctx, recipient.ID, amountCents); err != nil {
			return err
		} else if err := requireExactlyOne(rows, "transfer credit"); err != nil {
			return err
		}

		outTxn := &models.Transaction{
			ID:            uuid.New(),
			AccountID:     sender.ID,
			Type:          domain.TxTypeTransferOut,
			AmountCents:   amountCents,
			Status:        domain.TxStatusCompleted,
			Reference:     domain.NewReference(domain.ReferencePrefix(domain.TxTypeTransferOut)),
			RelatedUserID: &recipientUserID,
		}
		if err := q.InsertTransaction(ctx, outTxn); err != nil {
			return err
		}

		senderID := userID
		inTxn := &models.Transaction{
			ID:            uuid.New(),
			AccountID:     recipient.ID,
			Type:          domain.TxTypeTransferIn,
			AmountCents:   amountCents,
			Status:        domain.TxStatusCompleted,
			Reference:     domain.NewReference(domain.ReferencePrefix(domain.TxTypeTransferIn)),
			RelatedUserID: &senderID,
		}
		if err := q.InsertTransaction(ctx, inTxn); err != nil {
			return err
		}

		if err := s.writeBalanceAudit(ctx, q, outTxn, userID,
			sender.WalletBalanceCents, sender.WalletBalanceCents-amountCents); err != nil {
			return err
		}

		result = OperationResult{
			Transaction:        outTxn,
			WalletBalanceCents: sender.WalletBalanceCents - amountCents,
			DemoBalanceCents:   sender.DemoBalanceCents,
		}
		return nil
	})
	if err != nil {
		observability.IncrementLedgerOperation(domain.TxTypeTransferOut, "failed")
		return nil, err
	}
	observability.IncrementLedgerOperation(domain.TxTypeTransferOut, "completed")
	return &result, nil
}

// TransferToPlatform reallocates funds from the selected balance to the
// named trading platform. The platform collaborator must confirm the
// transfer before the debit commits; a rejection leaves the ledger
// untouched.
func (s *LedgerService) TransferToPlatform(ctx context.Context, userID uuid.UUID, amountCents int64, platformName, accountType string) (*OperationResult, error) {
	if platformName == "" || accountType == "" {
		return nil, models.ErrValidationFailed
	}
	if !domain.ValidPlatform(platformName) || !domain.ValidAccountType(accountType) {
		return nil, models.ErrValidationFailed
	}
	if amountCents <= 0 {
		return nil, models.ErrInvalidAmount
	}

	txType := domain.TxTypePlatformLive
	if accountType == domain.AccountTypeDemo {
		txType = domain.TxTypePlatformDemo
	}

	if err := s.platform.TransferFunds(ctx, userID.String(), amountCents, platform.DirectionToPlatform); err != nil {
		zap.L().Warn("platform rejected transfer",
			zap.String("user_id", userID.String()),
			zap.String("platform", platformName),
			zap.Error(err))
		observability.IncrementLedgerOperation(txType, "rejected")
		return nil, fmt.Errorf("%w: %s", models.ErrPlatformRejected, platformName)
	}

	var result OperationResult
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		account, err := s.lockAccountByUser(ctx, q, userID)
		if err != nil {
			return err
		}

		selected := account.WalletBalanceCents
		if accountType == domain.AccountTypeDemo {
			selected = account.DemoBalanceCents
		}
		if selected < amountCents {
			return models.ErrInsufficientFunds
		}

		var rows int64
		if accountType == domain.AccountTypeDemo {
			rows, err = q.AddToDemoBalance(ctx, account.ID, -amountCents)
		} else {
			rows, err = q.AddToWalletBalance(ctx, account.ID, -amountCents)
		}
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "platform transfer debit"); err != nil {
			return err
		}

		txn := &models.Transaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			Type:        txType,
			AmountCents: amountCents,
			Status:      domain.TxStatusCompleted,
			Reference:   domain.NewReference(domain.ReferencePrefix(txType)),
			Metadata: map[string]any{
				"platform": platformName,
				"leverage": domain.PlatformLeverage,
			},
		}
		if err := q.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		if err := s.writeBalanceAudit(ctx, q, txn, userID, selected, selected-amountCents); err != nil {
			return err
		}

		result = OperationResult{
			Transaction:        txn,
			WalletBalanceCents: account.WalletBalanceCents,
			DemoBalanceCents:   account.DemoBalanceCents,
		}
		if accountType == domain.AccountTypeDemo {
			result.DemoBalanceCents -= amountCents
		} else {
			result.WalletBalanceCents -= amountCents
		}
		return nil
	})
	if err != nil {
		observability.IncrementLedgerOperation(txType, "failed")
		return nil, err
	}
	observability.IncrementLedgerOperation(txType, "completed")
	return &result, nil
}

func (s *LedgerService) lockAccountByUser(ctx context.Context, q *repository.Queries, userID uuid.UUID) (*models.Account, error) {
	accountID, err := q.GetAccountIDByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	account, err := q.LockAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *LedgerService) writeBalanceAudit(ctx context.Context, q *repository.Queries, txn *models.Transaction, actorID uuid.UUID, prevCents, nextCents int64) error {
	metadata, err := json.Marshal(map[string]any{
		"reference":    txn.Reference,
		"amount_cents": txn.AmountCents,
	})
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	return s.audit.Write(ctx, q, "transaction", txn.ID, &actorID, txn.Type,
		domain.FormatCents(prevCents), domain.FormatCents(nextCents), metadata)
}
