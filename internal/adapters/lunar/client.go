package lunar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/lunar/payments-plugin-shopware/internal/config"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
	"golang.org/x/time/rate"
)

// Client talks to the Lunar payments API. It is shared across app keys; each
// Payments call binds one key.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(cfg config.LunarConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger,
	}
}

var _ ports.Gateway = (*Client)(nil)

func (c *Client) Payments(appKey string) ports.PaymentsClient {
	return &paymentsClient{client: c, appKey: appKey}
}

type paymentsClient struct {
	client *Client
	appKey string
}

func (p *paymentsClient) Create(ctx context.Context, req domain.IntentRequest) (string, error) {
	body := newCreatePaymentRequest(req)
	resp, err := sendRequest[CreatePaymentRequest, CreatePaymentResponse](p, ctx, http.MethodPost, "/payments", &body)
	if err != nil {
		return "", err
	}
	return resp.PaymentID, nil
}

func (p *paymentsClient) Fetch(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
	resp, err := sendRequest[any, PaymentResponse](p, ctx, http.MethodGet, "/payments/"+url.PathEscape(intentID), nil)
	if err != nil {
		return nil, err
	}

	amount, err := resp.Amount.toDomain()
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q in payment %s: %w", resp.Amount.Decimal, intentID, err)
	}

	return &domain.RemoteTransaction{
		ID:                   resp.ID,
		AuthorisationCreated: resp.AuthorisationCreated,
		Amount:               amount,
		CaptureState:         resp.CaptureState,
		RefundState:          resp.RefundState,
		CancelState:          resp.CancelState,
	}, nil
}

func (p *paymentsClient) Capture(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
	return p.action(ctx, intentID, "capture", amount)
}

func (p *paymentsClient) Refund(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
	return p.action(ctx, intentID, "refund", amount)
}

func (p *paymentsClient) Cancel(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
	return p.action(ctx, intentID, "cancel", amount)
}

func (p *paymentsClient) action(ctx context.Context, intentID, name string, amount domain.Amount) (*domain.ActionResult, error) {
	body := ActionRequest{Amount: toAmountDTO(amount)}
	path := fmt.Sprintf("/payments/%s/%s", url.PathEscape(intentID), name)

	resp, err := sendRequest[ActionRequest, ActionResponse](p, ctx, http.MethodPost, path, &body)
	if err != nil {
		return nil, err
	}

	p.client.logger.Debug("lunar action completed",
		"intent_id", intentID,
		"action", name,
		"amount", body.Amount.Decimal,
		"currency", body.Amount.Currency,
	)

	return &domain.ActionResult{
		CaptureState: resp.CaptureState,
		RefundState:  resp.RefundState,
		CancelState:  resp.CancelState,
	}, nil
}

func sendRequest[Req any, Resp any](p *paymentsClient, ctx context.Context, method, path string, reqBody *Req) (*Resp, error) {
	if err := p.client.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.client.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.appKey)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
			return nil, &GatewayError{
				Code:       "unexpected_response",
				Message:    string(body),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &GatewayError{
			Code:       errResp.Code,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var out Resp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &out, nil
}
