package transactions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	app "github.com/vivekbharatha/vbank/internal/app/transactions"
	"github.com/vivekbharatha/vbank/internal/domain"
)

// fakeService returns canned results so handler behavior can be tested
// without the saga machinery.
type fakeService struct {
	createTransfer func(context.Context, app.TransferParams) (*domain.Transaction, error)
	getByID        func(context.Context, string) (*domain.Transaction, error)
	receipt        func(context.Context, app.ExternalReceiptParams) error
}

func (f *fakeService) CreateTransfer(ctx context.Context, p app.TransferParams) (*domain.Transaction, error) {
	return f.createTransfer(ctx, p)
}

func (f *fakeService) CreateExternalTransfer(ctx context.Context, p app.ExternalTransferParams) (*domain.Transaction, error) {
	return f.createTransfer(ctx, p.TransferParams)
}

func (f *fakeService) GetByTransactionID(ctx context.Context, id string) (*domain.Transaction, error) {
	return f.getByID(ctx, id)
}

func (f *fakeService) GetByReferenceID(ctx context.Context, id string) (*domain.Transaction, error) {
	return f.getByID(ctx, id)
}

func (f *fakeService) HandleTransactionEvent(context.Context, domain.TransactionEvent) error {
	return nil
}

func (f *fakeService) ProcessExternalReceipt(ctx context.Context, p app.ExternalReceiptParams) error {
	return f.receipt(ctx, p)
}

func (f *fakeService) ProcessExternalInbound(context.Context, app.ExternalInboundParams) (*domain.Transaction, error) {
	return nil, nil
}

func TestGetByTransactionIDHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &fakeService{
			getByID: func(_ context.Context, id string) (*domain.Transaction, error) {
				return &domain.Transaction{TransactionID: id, Status: domain.TransactionCompleted}, nil
			},
		}
		handler := NewTransactionHandler(svc, zap.NewNop())

		r := chi.NewRouter()
		r.Get("/transactions/{transactionID}", handler.GetByTransactionID)

		req := httptest.NewRequest(http.MethodGet, "/transactions/VBNK-X1", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body domain.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "VBNK-X1", body.TransactionID)
	})

	t.Run("not found maps to 404 with code", func(t *testing.T) {
		svc := &fakeService{
			getByID: func(context.Context, string) (*domain.Transaction, error) {
				return nil, domain.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(svc, zap.NewNop())

		r := chi.NewRouter()
		r.Get("/transactions/{transactionID}", handler.GetByTransactionID)

		req := httptest.NewRequest(http.MethodGet, "/transactions/VBNK-MISSING", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExternalReceiptHandler(t *testing.T) {
	t.Run("valid receipt", func(t *testing.T) {
		var got app.ExternalReceiptParams
		svc := &fakeService{
			receipt: func(_ context.Context, p app.ExternalReceiptParams) error {
				got = p
				return nil
			},
		}
		handler := NewTransactionHandler(svc, zap.NewNop())

		payload, _ := json.Marshal(map[string]string{
			"referenceId": "ref-1",
			"status":      "SUCCESS",
		})
		req := httptest.NewRequest(http.MethodPost, "/receipt", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.ExternalReceipt(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ref-1", got.ReferenceID)
		assert.Equal(t, "SUCCESS", got.Status)
	})

	t.Run("payload timestamp is carried through", func(t *testing.T) {
		var got app.ExternalReceiptParams
		svc := &fakeService{
			receipt: func(_ context.Context, p app.ExternalReceiptParams) error {
				got = p
				return nil
			},
		}
		handler := NewTransactionHandler(svc, zap.NewNop())

		settledAt := time.Date(2026, time.March, 5, 12, 30, 0, 0, time.UTC)
		payload, _ := json.Marshal(map[string]any{
			"referenceId": "ref-1",
			"status":      "SUCCESS",
			"timestamp":   settledAt,
		})
		req := httptest.NewRequest(http.MethodPost, "/receipt", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.ExternalReceipt(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, got.Timestamp.Equal(settledAt))
	})

	t.Run("unknown status is rejected before the service", func(t *testing.T) {
		svc := &fakeService{
			receipt: func(context.Context, app.ExternalReceiptParams) error {
				t.Fatal("service must not be called")
				return nil
			},
		}
		handler := NewTransactionHandler(svc, zap.NewNop())

		payload, _ := json.Marshal(map[string]string{
			"referenceId": "ref-1",
			"status":      "MAYBE",
		})
		req := httptest.NewRequest(http.MethodPost, "/receipt", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.ExternalReceipt(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
