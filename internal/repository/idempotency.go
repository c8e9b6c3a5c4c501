package repository

import (
	"context"
	"time"
)

// IdempotencyRow mirrors one idempotency_keys record.
type IdempotencyRow struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyRow, error) {
	var row IdempotencyRow
	query := `SELECT idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress, created_at, updated_at
		FROM idempotency_keys WHERE idempotency_key = $1`
	err := q.db.QueryRow(ctx, query, key).Scan(
		&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress,
		&row.CreatedAt, &row.UpdatedAt)
	return row, err
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

// ReserveIdempotencyKey claims a key for the in-flight request. Returns
// pgx.ErrNoRows when another request already holds the key.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, p ReserveIdempotencyKeyParams) (IdempotencyRow, error) {
	var row IdempotencyRow
	query := `INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress, created_at, updated_at`
	err := q.db.QueryRow(ctx, query, p.IdempotencyKey, p.RequestHash, p.Method, p.Path).Scan(
		&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress,
		&row.CreatedAt, &row.UpdatedAt)
	return row, err
}

type FinalizeIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, p FinalizeIdempotencyKeyParams) (IdempotencyRow, error) {
	var row IdempotencyRow
	query := `UPDATE idempotency_keys
		SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE, updated_at = NOW()
		WHERE idempotency_key = $4 AND request_hash = $5
		RETURNING idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress, created_at, updated_at`
	err := q.db.QueryRow(ctx, query, p.ResponseStatus, p.ResponseBody, p.ContentType, p.IdempotencyKey, p.RequestHash).Scan(
		&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress,
		&row.CreatedAt, &row.UpdatedAt)
	return row, err
}
