package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/app/accounts"
	"github.com/vivekbharatha/vbank/internal/domain"
	"github.com/vivekbharatha/vbank/internal/handler/http/httputil"
	"github.com/vivekbharatha/vbank/internal/middleware"
)

type AccountHandler struct {
	service accounts.Service
	logger  *zap.Logger
}

func NewAccountHandler(s accounts.Service, l *zap.Logger) *AccountHandler {
	return &AccountHandler{service: s, logger: l}
}

type createAccountRequest struct {
	AccountName string `json:"accountName" validate:"required"`
	AccountType string `json:"accountType" validate:"required,oneof=savings current"`
}

type internalTransactionRequest struct {
	AccountNumber   string          `json:"accountNumber" validate:"required,len=15,numeric"`
	TransactionType string          `json:"transactionType" validate:"required,oneof=credit debit"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Note            string          `json:"note"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createAccountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.service.Create(r.Context(), accounts.CreateAccountParams{
		UserID:      userID,
		AccountName: req.AccountName,
		AccountType: domain.AccountType(req.AccountType),
	})
	if err != nil {
		h.logger.Warn("account creation failed", zap.Int64("user_id", userID), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list accounts", zap.Int64("user_id", userID), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	accountNumber := chi.URLParam(r, "accountNumber")

	account, err := h.service.GetByAccountNumber(r.Context(), userID, accountNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	accountNumber := chi.URLParam(r, "accountNumber")

	if err := h.service.Delete(r.Context(), userID, accountNumber); err != nil {
		h.logger.Warn("account deletion failed",
			zap.Int64("user_id", userID),
			zap.String("account_number", accountNumber),
			zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// Lookup serves other services resolving an account by number. API key
// protected; no ownership filter.
func (h *AccountHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")

	account, err := h.service.LookupByAccountNumber(r.Context(), accountNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) InternalTransaction(w http.ResponseWriter, r *http.Request) {
	var req internalTransactionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.service.ApplyInternalTransaction(r.Context(), accounts.InternalTransactionParams{
		AccountNumber:   req.AccountNumber,
		TransactionType: domain.TransactionType(req.TransactionType),
		Amount:          req.Amount,
		Note:            req.Note,
	})
	if err != nil {
		h.logger.Warn("internal transaction rejected",
			zap.String("account_number", req.AccountNumber),
			zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, account)
}
