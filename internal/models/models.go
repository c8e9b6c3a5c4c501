package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account holds one user's balances, in cents. A balance is only ever
// mutated inside a ledger transaction scope and never goes negative.
type Account struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	WalletBalanceCents int64     `json:"wallet_balance_cents"`
	DemoBalanceCents   int64     `json:"demo_balance_cents"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Transaction is one immutable ledger event. Amount is always positive;
// the sign of its effect is implied by Type. Peer transfers produce two
// rows that reference the counterparty via RelatedUserID.
type Transaction struct {
	ID            uuid.UUID      `json:"id"`
	AccountID     uuid.UUID      `json:"account_id"`
	Type          string         `json:"type"`
	AmountCents   int64          `json:"amount_cents"`
	Status        string         `json:"status"`
	Reference     string         `json:"reference"`
	RelatedUserID *uuid.UUID     `json:"related_user_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
