package transactions

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/app/transactions"
	"github.com/vivekbharatha/vbank/internal/handler/http/httputil"
	"github.com/vivekbharatha/vbank/internal/middleware"
)

type TransactionHandler struct {
	service transactions.Service
	logger  *zap.Logger
}

func NewTransactionHandler(s transactions.Service, l *zap.Logger) *TransactionHandler {
	return &TransactionHandler{service: s, logger: l}
}

type createTransferRequest struct {
	SourceAccountNumber      string          `json:"sourceAccountNumber" validate:"required,len=15,numeric"`
	DestinationAccountNumber string          `json:"destinationAccountNumber" validate:"required,len=15,numeric"`
	Amount                   decimal.Decimal `json:"amount" validate:"required"`
	Note                     string          `json:"note"`
}

type createExternalTransferRequest struct {
	createTransferRequest
	SourceBankCode      string `json:"sourceBankCode" validate:"required"`
	DestinationBankCode string `json:"destinationBankCode" validate:"required"`
}

type externalReceiptRequest struct {
	ReferenceID string     `json:"referenceId" validate:"required"`
	Status      string     `json:"status" validate:"required,oneof=SUCCESS FAILED"`
	Error       string     `json:"error"`
	Timestamp   *time.Time `json:"timestamp"`
}

type externalInboundRequest struct {
	SourceAccount       string          `json:"sourceAccount" validate:"required"`
	DestinationAccount  string          `json:"destinationAccount" validate:"required,len=15,numeric"`
	Amount              decimal.Decimal `json:"amount" validate:"required"`
	SourceBankCode      string          `json:"sourceBankCode" validate:"required"`
	DestinationBankCode string          `json:"destinationBankCode" validate:"required"`
	Note                string          `json:"note"`
	ReferenceID         string          `json:"referenceId" validate:"required"`
}

func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createTransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	txn, err := h.service.CreateTransfer(r.Context(), transactions.TransferParams{
		UserID:                   userID,
		SourceAccountNumber:      req.SourceAccountNumber,
		DestinationAccountNumber: req.DestinationAccountNumber,
		Amount:                   req.Amount,
		Note:                     req.Note,
	})
	if err != nil {
		h.logger.Warn("transfer rejected", zap.Int64("user_id", userID), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, txn)
}

func (h *TransactionHandler) CreateExternalTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createExternalTransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	txn, err := h.service.CreateExternalTransfer(r.Context(), transactions.ExternalTransferParams{
		TransferParams: transactions.TransferParams{
			UserID:                   userID,
			SourceAccountNumber:      req.SourceAccountNumber,
			DestinationAccountNumber: req.DestinationAccountNumber,
			Amount:                   req.Amount,
			Note:                     req.Note,
		},
		SourceBankCode:      req.SourceBankCode,
		DestinationBankCode: req.DestinationBankCode,
	})
	if err != nil {
		h.logger.Warn("external transfer rejected", zap.Int64("user_id", userID), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, txn)
}

func (h *TransactionHandler) GetByTransactionID(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	txn, err := h.service.GetByTransactionID(r.Context(), transactionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, txn)
}

func (h *TransactionHandler) GetByReferenceID(w http.ResponseWriter, r *http.Request) {
	referenceID := chi.URLParam(r, "referenceID")

	txn, err := h.service.GetByReferenceID(r.Context(), referenceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, txn)
}

// ExternalReceipt is the central bank's callback delivering the outcome
// of an outbound credit we requested.
func (h *TransactionHandler) ExternalReceipt(w http.ResponseWriter, r *http.Request) {
	var req externalReceiptRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	receivedAt := time.Now()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		receivedAt = *req.Timestamp
	}

	err := h.service.ProcessExternalReceipt(r.Context(), transactions.ExternalReceiptParams{
		ReferenceID: req.ReferenceID,
		Status:      req.Status,
		Error:       req.Error,
		Timestamp:   receivedAt,
	})
	if err != nil {
		h.logger.Error("failed to process external receipt",
			zap.String("reference_id", req.ReferenceID), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "receipt processed"})
}

// ExternalInbound accepts a transfer pushed by the central bank whose
// destination account lives on this bank.
func (h *TransactionHandler) ExternalInbound(w http.ResponseWriter, r *http.Request) {
	var req externalInboundRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	txn, err := h.service.ProcessExternalInbound(r.Context(), transactions.ExternalInboundParams{
		SourceAccount:       req.SourceAccount,
		DestinationAccount:  req.DestinationAccount,
		Amount:              req.Amount,
		SourceBankCode:      req.SourceBankCode,
		DestinationBankCode: req.DestinationBankCode,
		Note:                req.Note,
		ReferenceID:         req.ReferenceID,
		Timestamp:           time.Now(),
	})
	if err != nil {
		h.logger.Error("failed to process inbound transfer",
			zap.String("reference_id", req.ReferenceID), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, txn)
}
