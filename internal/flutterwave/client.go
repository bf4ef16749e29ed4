// Package flutterwave is a small client for the Flutterwave v3 REST API:
// hosted payment initiation, transaction verification and webhook checks.
package flutterwave

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.flutterwave.com/v3"

	// WebhookHashHeader carries the secret hash configured on the dashboard.
	WebhookHashHeader = "verif-hash"

	statusSuccess = "success"

	// StatusSuccessful is the status of a settled charge.
	StatusSuccessful = "successful"
)

// ErrUnsuccessful is returned when the API answers 2xx but reports failure.
var ErrUnsuccessful = errors.New("flutterwave: unsuccessful response")

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("flutterwave: %s: %s", e.Status, e.Message)
	}
	return "flutterwave: " + e.Status
}

// Client is a Flutterwave API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient constructs a new client. A nil httpClient gets one with the given timeout.
func NewClient(httpClient *http.Client, baseURL, secretKey string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secretKey:  secretKey,
	}
}

// Customer identifies the payer.
type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Meta is echoed back by the gateway on verification.
type Meta struct {
	RentalID string `json:"rentalId,omitempty"`
	CarID    string `json:"carId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// Customizations control the hosted payment page.
type Customizations struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// PaymentRequest is the body of POST /payments.
type PaymentRequest struct {
	TxRef          string         `json:"tx_ref"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	RedirectURL    string         `json:"redirect_url"`
	Customer       Customer       `json:"customer"`
	Meta           Meta           `json:"meta"`
	Customizations Customizations `json:"customizations"`
}

// PaymentLink is the hosted checkout created for a payment.
type PaymentLink struct {
	Link string
}

// InitiatePayment creates a hosted payment link.
func (c *Client) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentLink, error) {
	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments", req, &out); err != nil {
		return nil, err
	}
	if out.Status != statusSuccess || out.Data.Link == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, out.Message)
	}
	return &PaymentLink{Link: out.Data.Link}, nil
}

// Transaction is the verified state of a charge.
type Transaction struct {
	ID       int64   `json:"id"`
	TxRef    string  `json:"tx_ref"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Meta     Meta    `json:"meta"`
}

// Successful reports whether the gateway confirmed the charge.
func (t *Transaction) Successful() bool {
	return IsSuccessful(t.Status)
}

// IsSuccessful reports whether a charge status means the charge settled.
// Statuses are compared case-insensitively.
func IsSuccessful(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusSuccessful)
}

// VerifyTransaction fetches the authoritative state of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	if transactionID == "" {
		return nil, errors.New("flutterwave: empty transaction id")
	}

	var out struct {
		Status  string      `json:"status"`
		Message string      `json:"message"`
		Data    Transaction `json:"data"`
	}
	path := "/transactions/" + url.PathEscape(transactionID) + "/verify"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	if out.Status != statusSuccess {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, out.Message)
	}
	return &out.Data, nil
}

// VerifyWebhookHash reports whether the verif-hash header matches the
// configured secret hash. An empty secret never matches.
func VerifyWebhookHash(header, secretHash string) bool {
	if secretHash == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(secretHash)) == 1
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("flutterwave: decode response: %w", err)
	}
	return nil
}
