package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
)

// GatewayConfig configures the HTTP gateway and its circuit breaker.
type GatewayConfig struct {
	// BaseURL is the token service root, e.g. http://localhost:8090.
	BaseURL string

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// Timeout is the period of the open state.
	Timeout time.Duration

	// FailureThreshold is the consecutive-failure count that trips the breaker.
	FailureThreshold uint32
}

// DefaultGatewayConfig returns a sensible default configuration.
func DefaultGatewayConfig(baseURL string) GatewayConfig {
	return GatewayConfig{
		BaseURL:          baseURL,
		RequestTimeout:   10 * time.Second,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// HTTPGateway talks JSON over HTTP to an external token service. Calls
// run through a circuit breaker so a dead token service fails fast
// instead of hanging every payment.
//
// Token services signal failure two ways: a non-2xx status, or a 200
// with {"ok": false}. Both are normalized into an error return.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// NewHTTPGateway creates a gateway for the configured token service.
func NewHTTPGateway(cfg GatewayConfig, logger *slog.Logger) *HTTPGateway {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "token-gateway",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
	}
}

type balanceResponse struct {
	Balance domain.Amount `json:"balance"`
}

type transferRequest struct {
	From   domain.Account `json:"from,omitempty"`
	To     domain.Account `json:"to"`
	Amount domain.Amount  `json:"amount"`
}

type transferResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BalanceOf returns the holder's current balance.
func (g *HTTPGateway) BalanceOf(ctx context.Context, holder domain.Account) (domain.Amount, error) {
	body, err := g.do(ctx, http.MethodGet, "/balance/"+url.PathEscape(string(holder)), nil)
	if err != nil {
		return domain.ZeroAmount(), err
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ZeroAmount(), fmt.Errorf("decode balance response: %w", err)
	}
	return resp.Balance, nil
}

// TransferFrom moves amount from `from` to `to` using the token
// service's allowance mechanics.
func (g *HTTPGateway) TransferFrom(ctx context.Context, from, to domain.Account, amount domain.Amount) error {
	return g.transfer(ctx, "/transferFrom", transferRequest{From: from, To: to, Amount: amount})
}

// Transfer moves amount out of the ledger's custody account.
func (g *HTTPGateway) Transfer(ctx context.Context, to domain.Account, amount domain.Amount) error {
	return g.transfer(ctx, "/transfer", transferRequest{To: to, Amount: amount})
}

func (g *HTTPGateway) transfer(ctx context.Context, path string, req transferRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode transfer request: %w", err)
	}

	body, err := g.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}

	var resp transferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode transfer response: %w", err)
	}
	if !resp.OK {
		if resp.Error != "" {
			return fmt.Errorf("token service rejected transfer: %s", resp.Error)
		}
		return fmt.Errorf("token service rejected transfer")
	}
	return nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	return g.breaker.Execute(func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("token service request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("token service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		}
		return body, nil
	})
}

var _ domain.TokenGateway = (*HTTPGateway)(nil)
