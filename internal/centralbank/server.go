package centralbank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vivekbharatha/vbank/internal/domain"
	"github.com/vivekbharatha/vbank/internal/middleware"
)

// Transfer outcomes are normally decided by the receiving bank. Two
// amounts are reserved to force an outcome deterministically, for
// exercising both saga paths end to end.
var (
	amountForceFailure = decimal.NewFromInt(400)
	amountForceSuccess = decimal.NewFromInt(200)
)

const transferIDPrefix = "CB-"

type TransferStatus string

const (
	TransferPending TransferStatus = "PENDING"
	TransferSuccess TransferStatus = "SUCCESS"
	TransferFailed  TransferStatus = "FAILED"
)

type Transfer struct {
	ID                  string          `json:"id"`
	SourceAccount       string          `json:"sourceAccount"`
	DestinationAccount  string          `json:"destinationAccount"`
	SourceBankCode      string          `json:"sourceBankCode"`
	DestinationBankCode string          `json:"destinationBankCode"`
	Amount              decimal.Decimal `json:"amount"`
	ReferenceID         string          `json:"referenceId"`
	CallbackURL         string          `json:"-"`
	Status              TransferStatus  `json:"status"`
	Error               string          `json:"error,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type receiptPayload struct {
	ReferenceID string    `json:"referenceId"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Server simulates the interbank clearing house. It accepts transfer
// requests from member banks, settles them after a short processing
// delay and reports the outcome back over the requester's callback.
// State is held in memory; the simulator is a development stand-in, not
// a durable system.
type Server struct {
	mu        sync.RWMutex
	transfers map[string]*Transfer

	apiKey      string
	vbankURL    string
	vbankAPIKey string
	httpClient  *http.Client
	logger      *zap.Logger

	// Swappable for deterministic tests.
	now            func() time.Time
	settlementWait time.Duration
	decideOutcome  func(t *Transfer) (TransferStatus, string)
}

func NewServer(apiKey, vbankURL, vbankAPIKey string, logger *zap.Logger) *Server {
	s := &Server{
		transfers:      make(map[string]*Transfer),
		apiKey:         apiKey,
		vbankURL:       vbankURL,
		vbankAPIKey:    vbankAPIKey,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		logger:         logger,
		now:            time.Now,
		settlementWait: 2 * time.Second,
	}
	s.decideOutcome = s.defaultOutcome
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.apiKey))
		r.Post("/api/v1/transfers/inbound", s.handleInbound)
		r.Post("/api/v1/transfers/receipt/{referenceID}", s.handleReceipt)
		r.Get("/api/v1/transfers/{transferID}", s.handleStatus)
	})

	return r
}

// handleInbound accepts a transfer request from a member bank and kicks
// off asynchronous settlement.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var req OutboundCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ReferenceID == "" || !req.Amount.IsPositive() {
		http.Error(w, "referenceId and a positive amount are required", http.StatusBadRequest)
		return
	}

	now := s.now()
	transfer := &Transfer{
		ID:                  transferIDPrefix + domain.NewReferenceID(),
		SourceAccount:       req.SourceAccount,
		DestinationAccount:  req.DestinationAccount,
		SourceBankCode:      req.SourceBankCode,
		DestinationBankCode: req.DestinationBankCode,
		Amount:              req.Amount,
		ReferenceID:         req.ReferenceID,
		CallbackURL:         req.CallbackURL,
		Status:              TransferPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	s.mu.Lock()
	s.transfers[transfer.ID] = transfer
	accepted := *transfer
	s.mu.Unlock()

	s.logger.Info("transfer accepted",
		zap.String("transfer_id", transfer.ID),
		zap.String("reference_id", transfer.ReferenceID),
		zap.String("destination_bank", transfer.DestinationBankCode))

	go s.settle(accepted.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(accepted)
}

// handleReceipt records the destination bank's final outcome for a
// transfer routed through the clearing house, and forwards it to the
// originating bank's callback.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	referenceID := chi.URLParam(r, "referenceID")

	var req struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status != string(TransferSuccess) && req.Status != string(TransferFailed) {
		http.Error(w, "status must be SUCCESS or FAILED", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var transfer *Transfer
	for _, t := range s.transfers {
		if t.ReferenceID == referenceID {
			transfer = t
			break
		}
	}
	if transfer == nil {
		s.mu.Unlock()
		http.Error(w, "transfer not found", http.StatusNotFound)
		return
	}
	transfer.Status = TransferStatus(req.Status)
	transfer.Error = req.Error
	transfer.UpdatedAt = s.now()
	callbackURL := transfer.CallbackURL
	s.mu.Unlock()

	s.logger.Info("receipt recorded",
		zap.String("reference_id", referenceID),
		zap.String("status", req.Status))

	if callbackURL != "" {
		s.deliverReceipt(r.Context(), callbackURL, receiptPayload{
			ReferenceID: referenceID,
			Status:      req.Status,
			Error:       req.Error,
			Timestamp:   s.now(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "receipt recorded"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	transferID := chi.URLParam(r, "transferID")

	s.mu.RLock()
	transfer, ok := s.transfers[transferID]
	var snapshot Transfer
	if ok {
		snapshot = *transfer
	}
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "transfer not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// settle processes one pending transfer after the settlement delay. A
// transfer destined for a member bank is pushed to that bank and stays
// pending until its receipt arrives; any other destination is settled by
// the clearing house itself.
func (s *Server) settle(transferID string) {
	time.Sleep(s.settlementWait)

	s.mu.Lock()
	transfer, ok := s.transfers[transferID]
	if !ok || transfer.Status != TransferPending {
		s.mu.Unlock()
		return
	}
	snapshot := *transfer
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if snapshot.DestinationBankCode == domain.BankCode {
		if err := s.pushToMemberBank(ctx, &snapshot); err != nil {
			s.logger.Error("failed to push transfer to member bank",
				zap.String("transfer_id", snapshot.ID), zap.Error(err))
			s.finish(ctx, transferID, TransferFailed, "destination bank unreachable")
		}
		// Outcome arrives later via the receipt endpoint.
		return
	}

	status, errMsg := s.decideOutcome(&snapshot)
	s.finish(ctx, transferID, status, errMsg)
}

func (s *Server) defaultOutcome(t *Transfer) (TransferStatus, string) {
	switch {
	case t.Amount.Equal(amountForceFailure):
		return TransferFailed, "destination account is not operational"
	case t.Amount.Equal(amountForceSuccess):
		return TransferSuccess, ""
	default:
		return TransferSuccess, ""
	}
}

func (s *Server) finish(ctx context.Context, transferID string, status TransferStatus, errMsg string) {
	s.mu.Lock()
	transfer, ok := s.transfers[transferID]
	if !ok {
		s.mu.Unlock()
		return
	}
	transfer.Status = status
	transfer.Error = errMsg
	transfer.UpdatedAt = s.now()
	callbackURL := transfer.CallbackURL
	referenceID := transfer.ReferenceID
	s.mu.Unlock()

	s.logger.Info("transfer settled",
		zap.String("transfer_id", transferID),
		zap.String("status", string(status)))

	if callbackURL != "" {
		s.deliverReceipt(ctx, callbackURL, receiptPayload{
			ReferenceID: referenceID,
			Status:      string(status),
			Error:       errMsg,
			Timestamp:   s.now(),
		})
	}
}

func (s *Server) pushToMemberBank(ctx context.Context, t *Transfer) error {
	payload := map[string]any{
		"sourceAccount":       t.SourceAccount,
		"destinationAccount":  t.DestinationAccount,
		"amount":              t.Amount,
		"sourceBankCode":      t.SourceBankCode,
		"destinationBankCode": t.DestinationBankCode,
		"referenceId":         t.ReferenceID,
	}
	return s.post(ctx, s.vbankURL+"/api/v1/transactions/external/inbound", s.vbankAPIKey, payload)
}

func (s *Server) deliverReceipt(ctx context.Context, callbackURL string, payload receiptPayload) {
	if err := s.post(ctx, callbackURL, s.vbankAPIKey, payload); err != nil {
		s.logger.Error("failed to deliver receipt",
			zap.String("callback_url", callbackURL),
			zap.String("reference_id", payload.ReferenceID),
			zap.Error(err))
	}
}

func (s *Server) post(ctx context.Context, url, apiKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.APIKeyHeader, apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return nil
}
