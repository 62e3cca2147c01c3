package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/thomaggio/thomaggio-backend/pkg/config"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
)

var (
	errAccessTokenRequired = errors.New("mercadopago access token is required")
	errLoggerRequired      = errors.New("mercadopago logger is required")
)

// Client exposes Mercado Pago charge primitives with centralized auth,
// logging, idempotency and error mapping.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	logger      *logger.Logger
}

// NewClient initializes the gateway wrapper and validates the credentials.
func NewClient(cfg config.MercadoPagoConfig, appEnv string, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	token := strings.TrimSpace(cfg.Token(appEnv))
	if token == "" {
		return nil, errAccessTokenRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     baseURL,
		accessToken: token,
		logger:      logg,
	}, nil
}

// NewIdempotencyKey returns a unique key for charge creation retries.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "tmg"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// CreatePayment opens a new charge. A rejected charge is not an error; the
// caller reads the returned status.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*Payment, error) {
	idempotencyKey := params.IdempotencyKey
	if strings.TrimSpace(idempotencyKey) == "" {
		idempotencyKey = c.NewIdempotencyKey("payment.create")
	}

	c.log(ctx, "request", "create_payment", map[string]any{
		"payment_method": params.PaymentMethodID,
		"amount":         params.Amount.StringFixed(2),
	})

	var payment Payment
	err := c.do(ctx, http.MethodPost, "/v1/payments", params.toRequest(), idempotencyKey, &payment)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return &payment, nil
}

// GetPayment fetches the current state of a charge by its gateway id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": paymentID})

	var payment Payment
	err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, "", &payment)
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return &payment, nil
}

// CancelPayment cancels a pending charge.
func (c *Client) CancelPayment(ctx context.Context, paymentID string) (*Payment, error) {
	c.log(ctx, "request", "cancel_payment", map[string]any{"payment_id": paymentID})

	var payment Payment
	body := map[string]string{"status": StatusCancelled}
	err := c.do(ctx, http.MethodPut, "/v1/payments/"+paymentID, body, "", &payment)
	if err != nil {
		c.log(ctx, "error", "cancel_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "cancel_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return &payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if resp.StatusCode >= 400 {
		return c.mapAPIError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding gateway response")
		}
	}
	return nil
}

func (c *Client) mapAPIError(status int, raw []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(raw, &apiErr)

	message := apiErr.Message
	if message == "" {
		message = apiErr.Error
	}
	if message == "" {
		message = fmt.Sprintf("gateway returned status %d", status)
	}

	code := pkgerrors.CodeGateway
	switch {
	case status == http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case status >= 500:
		code = pkgerrors.CodeDependency
	}
	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"gateway_status": status,
	})
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("mercadopago %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("mercadopago %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "card"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
