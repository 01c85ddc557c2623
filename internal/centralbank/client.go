package centralbank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OutboundCreditRequest asks the central bank to credit an account held
// at another bank. The reference id correlates the eventual callback with
// our transaction.
type OutboundCreditRequest struct {
	SourceAccount       string          `json:"sourceAccount"`
	DestinationAccount  string          `json:"destinationAccount"`
	SourceBankCode      string          `json:"sourceBankCode"`
	DestinationBankCode string          `json:"destinationBankCode"`
	Amount              decimal.Decimal `json:"amount"`
	CallbackURL         string          `json:"callbackUrl"`
	ReferenceID         string          `json:"referenceId"`
}

type receiptRequest struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Client is the transaction service's gateway to the central bank. Every
// call carries a bounded timeout: the saga treats a timeout as a failed
// leg, never as something to wait on.
type Client struct {
	baseURL     string
	apiKey      string
	callbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(baseURL, apiKey, callbackURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (c *Client) RequestOutboundCredit(ctx context.Context, req OutboundCreditRequest) error {
	req.CallbackURL = c.callbackURL
	if err := c.post(ctx, c.baseURL+"/api/v1/transfers/inbound", req); err != nil {
		return fmt.Errorf("failed to credit external bank account: %w", err)
	}
	return nil
}

func (c *Client) NotifyOutcome(ctx context.Context, referenceID, status, errMsg string) error {
	url := fmt.Sprintf("%s/api/v1/transfers/receipt/%s", c.baseURL, referenceID)
	if err := c.post(ctx, url, receiptRequest{Status: status, Error: errMsg}); err != nil {
		return fmt.Errorf("failed to notify central bank: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("Central bank returned non-success status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("central bank returned status %d", resp.StatusCode)
	}
	return nil
}
