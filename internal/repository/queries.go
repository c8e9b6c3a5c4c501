package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradehaven/wallet-api/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so the same query set
// runs inside and outside a transaction scope.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a query set bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`
	err := q.db.QueryRow(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.Role).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (q *Queries) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (id, user_id, wallet_balance_cents, demo_balance_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query, account.ID, account.UserID, account.WalletBalanceCents, account.DemoBalanceCents).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = $1`
	err := q.db.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, name, email, password_hash, role, created_at FROM users WHERE lower(email) = lower($1)`
	err := q.db.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (q *Queries) GetAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	query := `SELECT id, user_id, wallet_balance_cents, demo_balance_cents, created_at, updated_at
		FROM accounts WHERE user_id = $1`
	err := q.db.QueryRow(ctx, query, userID).Scan(
		&account.ID, &account.UserID, &account.WalletBalanceCents, &account.DemoBalanceCents,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccountIDByUserID resolves the caller's account row id before the lock
// phase so two-account operations can lock in a consistent order.
func (q *Queries) GetAccountIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT id FROM accounts WHERE user_id = $1`, userID).Scan(&id)
	return id, err
}

// GetAccountIDByEmail resolves a recipient email to their account and user
// ids. Returns pgx.ErrNoRows when the email does not resolve.
func (q *Queries) GetAccountIDByEmail(ctx context.Context, email string) (accountID, ownerID uuid.UUID, err error) {
	query := `SELECT a.id, u.id FROM users u JOIN accounts a ON a.user_id = u.id WHERE lower(u.email) = lower($1)`
	err = q.db.QueryRow(ctx, query, email).Scan(&accountID, &ownerID)
	return accountID, ownerID, err
}

// LockAccount acquires a row lock on the account for the remainder of the
// enclosing transaction and returns the current balances.
func (q *Queries) LockAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	query := `SELECT id, user_id, wallet_balance_cents, demo_balance_cents, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE`
	err := q.db.QueryRow(ctx, query, accountID).Scan(
		&account.ID, &account.UserID, &account.WalletBalanceCents, &account.DemoBalanceCents,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (q *Queries) AddToWalletBalance(ctx context.Context, accountID uuid.UUID, deltaCents int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE accounts SET wallet_balance_cents = wallet_balance_cents + $1, updated_at = NOW() WHERE id = $2`,
		deltaCents, accountID)
	if err != nil {
		return 0, fmt.Errorf("update wallet balance: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) AddToDemoBalance(ctx context.Context, accountID uuid.UUID, deltaCents int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE accounts SET demo_balance_cents = demo_balance_cents + $1, updated_at = NOW() WHERE id = $2`,
		deltaCents, accountID)
	if err != nil {
		return 0, fmt.Errorf("update demo balance: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	var metadata []byte
	if len(txn.Metadata) > 0 {
		raw, err := json.Marshal(txn.Metadata)
		if err != nil {
			return fmt.Errorf("marshal transaction metadata: %w", err)
		}
		metadata = raw
	}
	query := `INSERT INTO transactions (id, account_id, type, amount_cents, status, reference, related_user_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`
	err := q.db.QueryRow(ctx, query,
		txn.ID, txn.AccountID, txn.Type, txn.AmountCents, txn.Status, txn.Reference, txn.RelatedUserID, metadata).
		Scan(&txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListTransactionsByUser returns the user's ledger events newest-first.
// A limit of 0 returns every row.
func (q *Queries) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.type, t.amount_cents, t.status, t.reference, t.related_user_id, t.metadata, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT NULLIF($2, 0) OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var metadata []byte
		if err := rows.Scan(&txn.ID, &txn.AccountID, &txn.Type, &txn.AmountCents, &txn.Status,
			&txn.Reference, &txn.RelatedUserID, &metadata, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
				return nil, fmt.Errorf("decode transaction metadata: %w", err)
			}
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  string
	NextState  string
	Metadata   []byte
}

func (q *Queries) InsertAuditLog(ctx context.Context, p InsertAuditLogParams) error {
	query := `INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NOW())`
	if _, err := q.db.Exec(ctx, query,
		p.EntityType, p.EntityID, p.ActorID, p.Action, p.PrevState, p.NextState, p.Metadata); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// WalletDrift is one account whose stored wallet balance disagrees with the
// balance recomputed from its transaction log.
type WalletDrift struct {
	AccountID     uuid.UUID
	StoredCents   int64
	ComputedCents int64
}

// ListWalletDrift recomputes each wallet balance from the completed
// transaction log (signed by type) and returns the rows that disagree with
// the stored balance. Demo balances start at a registration grant, so only
// the wallet side is checked.
func (q *Queries) ListWalletDrift(ctx context.Context) ([]WalletDrift, error) {
	query := `
		SELECT a.id, a.wallet_balance_cents, COALESCE(SUM(
			CASE t.type
				WHEN 'deposit' THEN t.amount_cents
				WHEN 'transfer_in' THEN t.amount_cents
				WHEN 'withdraw' THEN -t.amount_cents
				WHEN 'transfer_out' THEN -t.amount_cents
				WHEN 'platform_transfer_live' THEN -t.amount_cents
				ELSE 0
			END), 0) AS computed
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id AND t.status = 'completed'
		GROUP BY a.id, a.wallet_balance_cents
		HAVING a.wallet_balance_cents <> COALESCE(SUM(
			CASE t.type
				WHEN 'deposit' THEN t.amount_cents
				WHEN 'transfer_in' THEN t.amount_cents
				WHEN 'withdraw' THEN -t.amount_cents
				WHEN 'transfer_out' THEN -t.amount_cents
				WHEN 'platform_transfer_live' THEN -t.amount_cents
				ELSE 0
			END), 0)
	`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallet drift: %w", err)
	}
	defer rows.Close()

	var drifts []WalletDrift
	for rows.Next() {
		var d WalletDrift
		if err := rows.Scan(&d.AccountID, &d.StoredCents, &d.ComputedCents); err != nil {
			return nil, fmt.Errorf("scan wallet drift: %w", err)
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}
