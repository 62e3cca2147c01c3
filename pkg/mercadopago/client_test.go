package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomaggio/thomaggio-backend/pkg/config"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.MercadoPagoConfig{
		AccessToken: "test-token",
		BaseURL:     server.URL,
		Timeout:     2 * time.Second,
	}
	client, err := NewClient(cfg, "dev", logger.New(logger.Options{Level: zerolog.ErrorLevel}))
	require.NoError(t, err)
	return client, server
}

func TestCreatePaymentSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody paymentCreateRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		gotKey = r.Header.Get("X-Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Payment{
			ID:     123456,
			Status: StatusPending,
			PointOfInteraction: &PointOfInteraction{
				TransactionData: &TransactionData{
					QRCode:       "pix-copy-paste",
					QRCodeBase64: "aW1hZ2U=",
					TicketURL:    "https://pay.example/123456",
				},
			},
		})
	})

	expires := time.Now().UTC().Add(10 * time.Minute)
	payment, err := client.CreatePayment(context.Background(), PaymentCreateParams{
		Amount:          decimal.RequireFromString("86.40"),
		Description:     "Pedido #ab12cd34ef",
		PaymentMethodID: MethodPIX,
		Payer:           Payer{Email: "cliente_1@temp.com", FirstName: "Maria"},
		ExpiresAt:       &expires,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, gotKey)
	assert.Equal(t, MethodPIX, gotBody.PaymentMethodID)
	assert.InDelta(t, 86.40, gotBody.TransactionAmount, 0.001)
	assert.NotEmpty(t, gotBody.DateOfExpiration)
	assert.Equal(t, int64(123456), payment.ID)
	assert.Equal(t, StatusPending, payment.Status)
	assert.Equal(t, "pix-copy-paste", payment.QRCode())
	assert.Equal(t, "aW1hZ2U=", payment.QRCodeBase64())
}

func TestGetPaymentNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Payment not found", "status": 404})
	})

	_, err := client.GetPayment(context.Background(), "999")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestGatewayServerErrorMapsToDependency(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetPayment(context.Background(), "123")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestGatewayRejectionMapsToGatewayError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "invalid transaction_amount", "status": 400})
	})

	_, err := client.CreatePayment(context.Background(), PaymentCreateParams{
		Amount:          decimal.Zero,
		PaymentMethodID: MethodPIX,
		Payer:           Payer{Email: "cliente_1@temp.com"},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeGateway, typed.Code())
}

func TestCancelPayment(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/payments/123", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, StatusCancelled, body["status"])

		_ = json.NewEncoder(w).Encode(Payment{ID: 123, Status: StatusCancelled})
	})

	payment, err := client.CancelPayment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, payment.Status)
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.MercadoPagoConfig{}, "dev", logger.New(logger.Options{Level: zerolog.ErrorLevel}))
	assert.Error(t, err)
}
