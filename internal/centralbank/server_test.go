package centralbank

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "central-bank-key"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(testAPIKey, "http://vbank.invalid", "vbank_key", zap.NewNop())
	s.settlementWait = 0
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url, apiKey string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestInboundTransfer(t *testing.T) {
	t.Run("rejects requests without the api key", func(t *testing.T) {
		_, ts := newTestServer(t)

		resp := postJSON(t, ts.URL+"/api/v1/transfers/inbound", "", OutboundCreditRequest{
			ReferenceID: "ref-1",
			Amount:      decimal.NewFromInt(10),
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects missing reference id", func(t *testing.T) {
		_, ts := newTestServer(t)

		resp := postJSON(t, ts.URL+"/api/v1/transfers/inbound", testAPIKey, OutboundCreditRequest{
			Amount: decimal.NewFromInt(10),
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("settles and delivers a success receipt to the callback", func(t *testing.T) {
		received := make(chan receiptPayload, 1)
		callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p receiptPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			received <- p
			w.WriteHeader(http.StatusOK)
		}))
		defer callback.Close()

		_, ts := newTestServer(t)

		resp := postJSON(t, ts.URL+"/api/v1/transfers/inbound", testAPIKey, OutboundCreditRequest{
			SourceAccount:       "112025110000001",
			DestinationAccount:  "990000000000001",
			SourceBankCode:      "VBANK",
			DestinationBankCode: "NBANK",
			Amount:              decimal.NewFromInt(200),
			ReferenceID:         "ref-success",
			CallbackURL:         callback.URL,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		var transfer Transfer
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&transfer))
		assert.Contains(t, transfer.ID, "CB-")
		assert.Equal(t, TransferPending, transfer.Status)

		select {
		case p := <-received:
			assert.Equal(t, "ref-success", p.ReferenceID)
			assert.Equal(t, string(TransferSuccess), p.Status)
			assert.False(t, p.Timestamp.IsZero())
		case <-time.After(3 * time.Second):
			t.Fatal("no receipt delivered to callback")
		}
	})

	t.Run("reserved failure amount yields a failed receipt", func(t *testing.T) {
		received := make(chan receiptPayload, 1)
		callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p receiptPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			received <- p
			w.WriteHeader(http.StatusOK)
		}))
		defer callback.Close()

		s, ts := newTestServer(t)

		resp := postJSON(t, ts.URL+"/api/v1/transfers/inbound", testAPIKey, OutboundCreditRequest{
			SourceAccount:       "112025110000001",
			DestinationAccount:  "990000000000001",
			SourceBankCode:      "VBANK",
			DestinationBankCode: "NBANK",
			Amount:              decimal.NewFromInt(400),
			ReferenceID:         "ref-fail",
			CallbackURL:         callback.URL,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		var transfer Transfer
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&transfer))

		select {
		case p := <-received:
			assert.Equal(t, string(TransferFailed), p.Status)
			assert.NotEmpty(t, p.Error)
		case <-time.After(3 * time.Second):
			t.Fatal("no receipt delivered to callback")
		}

		// The stored transfer reflects the settled outcome.
		s.mu.RLock()
		stored := s.transfers[transfer.ID]
		s.mu.RUnlock()
		require.NotNil(t, stored)
		assert.Equal(t, TransferFailed, stored.Status)
	})
}

func TestTransferStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/transfers/inbound", testAPIKey, OutboundCreditRequest{
		SourceAccount:       "112025110000001",
		DestinationAccount:  "990000000000001",
		DestinationBankCode: "NBANK",
		Amount:              decimal.NewFromInt(25),
		ReferenceID:         "ref-status",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var transfer Transfer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&transfer))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/transfers/"+transfer.ID, nil)
	require.NoError(t, err)
	req.Header.Set("X-API-KEY", testAPIKey)

	statusResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer statusResp.Body.Close()
	assert.Equal(t, http.StatusOK, statusResp.StatusCode)

	var fetched Transfer
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&fetched))
	assert.Equal(t, transfer.ID, fetched.ID)
}

func TestReceiptEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/transfers/inbound", testAPIKey, OutboundCreditRequest{
		SourceAccount:       "990000000000001",
		DestinationAccount:  "112025110000001",
		SourceBankCode:      "NBANK",
		DestinationBankCode: "VBANK",
		Amount:              decimal.NewFromInt(60),
		ReferenceID:         "ref-receipt",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	receiptResp := postJSON(t, ts.URL+"/api/v1/transfers/receipt/ref-receipt", testAPIKey, map[string]string{
		"status": "SUCCESS",
	})
	defer receiptResp.Body.Close()
	assert.Equal(t, http.StatusOK, receiptResp.StatusCode)

	t.Run("unknown reference", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/transfers/receipt/ref-unknown", testAPIKey, map[string]string{
			"status": "SUCCESS",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
