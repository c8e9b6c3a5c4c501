package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/api/respond"
	"github.com/tradehaven/wallet-api/internal/domain"
	"github.com/tradehaven/wallet-api/internal/models"
	"github.com/tradehaven/wallet-api/internal/service"
)

// WalletHandler exposes the ledger and query operations. The acting
// account always comes from the authenticated identity.
type WalletHandler struct {
	ledger   *service.LedgerService
	accounts *service.AccountService
}

func NewWalletHandler(ledger *service.LedgerService, accounts *service.AccountService) *WalletHandler {
	return &WalletHandler{ledger: ledger, accounts: accounts}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	ToEmail string          `json:"toEmail" validate:"required,email"`
	Amount  decimal.Decimal `json:"amount"`
}

type platformTransferRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Platform    string          `json:"platform" validate:"required,oneof=MT4 MT5"`
	AccountType string          `json:"accountType" validate:"required,oneof=wallet demo"`
}

type balanceView struct {
	WalletBalance string `json:"walletBalance"`
	DemoBalance   string `json:"demoBalance"`
}

type transactionView struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Amount        string         `json:"amount"`
	Status        string         `json:"status"`
	Reference     string         `json:"reference"`
	RelatedUserID string         `json:"relatedUserId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     string         `json:"createdAt"`
}

type operationView struct {
	Amount        string          `json:"amount"`
	WalletBalance string          `json:"walletBalance"`
	DemoBalance   string          `json:"demoBalance"`
	Transaction   transactionView `json:"transaction"`
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	account, err := h.accounts.GetBalance(r.Context(), actorID)
	if err != nil {
		if respondServiceError(w, r, err) {
			return
		}
		zap.L().Error("get balance failed", zap.Error(err), zap.String("user_id", actorID.String()))
		respond.Error(w, r, http.StatusInternalServerError, "wallet/balance-read-failed", "Failed to get balance")
		return
	}

	respond.JSON(w, http.StatusOK, balanceView{
		WalletBalance: domain.FormatCents(account.WalletBalanceCents),
		DemoBalance:   domain.FormatCents(account.DemoBalanceCents),
	})
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.runAmountOperation(w, r, "deposit", h.ledger.Deposit)
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.runAmountOperation(w, r, "withdraw", h.ledger.Withdraw)
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/validation-failed", "A valid recipient email is required")
		return
	}
	amountCents, ok := parseAmount(w, r, req.Amount)
	if !ok {
		return
	}

	result, err := h.ledger.Transfer(r.Context(), actorID, req.ToEmail, amountCents)
	if err != nil {
		if respondServiceError(w, r, err) {
			return
		}
		zap.L().Error("transfer failed", zap.Error(err), zap.String("user_id", actorID.String()))
		respond.Error(w, r, http.StatusInternalServerError, "wallet/transfer-failed", "Transfer failed")
		return
	}

	respond.JSON(w, http.StatusOK, operationViewFrom(result))
}

func (h *WalletHandler) PlatformTransfer(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req platformTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/validation-failed", "platform (MT4|MT5) and accountType (wallet|demo) are required")
		return
	}
	amountCents, ok := parseAmount(w, r, req.Amount)
	if !ok {
		return
	}

	result, err := h.ledger.TransferToPlatform(r.Context(), actorID, amountCents, req.Platform, req.AccountType)
	if err != nil {
		if respondServiceError(w, r, err) {
			return
		}
		zap.L().Error("platform transfer failed", zap.Error(err),
			zap.String("user_id", actorID.String()), zap.String("platform", req.Platform))
		respond.Error(w, r, http.StatusInternalServerError, "wallet/platform-transfer-failed", "Platform transfer failed")
		return
	}

	respond.JSON(w, http.StatusOK, operationViewFrom(result))
}

func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	txns, err := h.accounts.GetHistory(r.Context(), actorID, page, pageSize)
	if err != nil {
		zap.L().Error("get history failed", zap.Error(err), zap.String("user_id", actorID.String()))
		respond.Error(w, r, http.StatusInternalServerError, "wallet/history-read-failed", "Failed to get transaction history")
		return
	}

	views := make([]transactionView, 0, len(txns))
	for i := range txns {
		views = append(views, transactionViewFrom(&txns[i]))
	}
	respond.JSON(w, http.StatusOK, views)
}

func (h *WalletHandler) runAmountOperation(w http.ResponseWriter, r *http.Request, name string,
	op func(ctx context.Context, userID uuid.UUID, amountCents int64) (*service.OperationResult, error)) {
	actorID, _, err := requestActor(r)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	amountCents, ok := parseAmount(w, r, req.Amount)
	if !ok {
		return
	}

	result, err := op(r.Context(), actorID, amountCents)
	if err != nil {
		if respondServiceError(w, r, err) {
			return
		}
		zap.L().Error(name+" failed", zap.Error(err), zap.String("user_id", actorID.String()))
		respond.Error(w, r, http.StatusInternalServerError, "wallet/"+name+"-failed", "Operation failed")
		return
	}

	respond.JSON(w, http.StatusOK, operationViewFrom(result))
}

// parseAmount converts the API decimal to cents, rejecting zero, negative
// and over-precise values before any transactional scope opens.
func parseAmount(w http.ResponseWriter, r *http.Request, amount decimal.Decimal) (int64, bool) {
	cents, err := domain.CentsFromDecimal(amount)
	if err != nil || cents <= 0 {
		respond.Error(w, r, http.StatusBadRequest, "ledger/invalid-amount", "Invalid amount")
		return 0, false
	}
	return cents, true
}

func transactionViewFrom(txn *models.Transaction) transactionView {
	v := transactionView{
		ID:        txn.ID.String(),
		Type:      txn.Type,
		Amount:    domain.FormatCents(txn.AmountCents),
		Status:    txn.Status,
		Reference: txn.Reference,
		Metadata:  txn.Metadata,
		CreatedAt: txn.CreatedAt.UTC().Format(time.RFC3339),
	}
	if txn.RelatedUserID != nil {
		v.RelatedUserID = txn.RelatedUserID.String()
	}
	return v
}

func operationViewFrom(result *service.OperationResult) operationView {
	return operationView{
		Amount:        domain.FormatCents(result.Transaction.AmountCents),
		WalletBalance: domain.FormatCents(result.WalletBalanceCents),
		DemoBalance:   domain.FormatCents(result.DemoBalanceCents),
		Transaction:   transactionViewFrom(result.Transaction),
	}
}
