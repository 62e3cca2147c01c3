package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

func receiptOrder() *models.Order {
	obs := "sem cebola"
	complement := "apto 42"
	promoCode := "DESC10"
	tender := decimal.RequireFromString("120.00")
	change := decimal.RequireFromString("25.60")
	return &models.Order{
		ID:            uuid.New(),
		Code:          "ped1234567",
		Status:        enums.OrderStatusPreparing,
		CustomerName:  "Maria Silva",
		CustomerPhone: "5511999990000",
		DeliveryType:  enums.DeliveryTypeDelivery,
		PaymentMethod: enums.PaymentMethodCash,
		Subtotal:      decimal.RequireFromString("96.00"),
		DiscountValue: decimal.RequireFromString("9.60"),
		DeliveryFee:   decimal.RequireFromString("8.00"),
		Total:         decimal.RequireFromString("94.40"),
		PromoCode:     &promoCode,
		CashTender:    &tender,
		CashChange:    &change,
		Address: &models.Address{
			Street:       "Rua das Flores",
			Number:       "120",
			Neighborhood: "Centro",
			City:         "Sao Paulo",
			Complement:   &complement,
		},
		Items: []models.OrderItem{{
			ProductName: "Pizza Calabresa",
			Size:        "grande",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("45.00"),
			Flavors:     types.FlavorSelections{{Name: "calabresa", Quantity: 1}, {Name: "mussarela", Quantity: 1}},
			Options:     types.OptionPrices{"borda recheada": decimal.RequireFromString("3.00")},
			Observation: &obs,
			LineTotal:   decimal.RequireFromString("96.00"),
		}},
		CreatedAt: time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC),
	}
}

func TestRenderReceiptLaysOutTicket(t *testing.T) {
	ticket := RenderReceipt(receiptOrder())

	for _, want := range []string{
		"COMANDA Nº ped1234567",
		"Data: 01/06/2025 19:30",
		"Status: PREPARANDO",
		"CLIENTE: Maria Silva",
		"TEL: 5511999990000",
		"ENTREGA:",
		"Rua das Flores, 120",
		"Comp: apto 42",
		"ITENS DO PEDIDO",
		"2x Pizza Calabresa",
		"Tam: grande",
		"- calabresa (1x)",
		"- mussarela (1x)",
		"+ borda recheada (+3,00)",
		"Obs: sem cebola",
		"R$ 96,00",
		"Subtotal: R$ 96,00",
		"Desconto: -R$ 9,60",
		"Cupom: DESC10",
		"Entrega: +R$ 8,00",
		"TOTAL GERAL: R$ 94,40",
		"Pagamento: DINHEIRO",
		"Troco p/: R$ 120,00",
		"Troco: R$ 25,60",
		"OBRIGADO PELA PREFERÊNCIA!",
	} {
		assert.Contains(t, ticket, want)
	}
}

func TestRenderReceiptSkipsEmptySections(t *testing.T) {
	order := receiptOrder()
	order.Address = nil
	order.PromoCode = nil
	order.DiscountValue = decimal.Zero
	order.DeliveryFee = decimal.Zero
	order.PaymentMethod = enums.PaymentMethodPIX
	order.CashTender = nil
	order.CashChange = nil
	order.Items[0].Flavors = nil
	order.Items[0].Options = nil
	order.Items[0].Observation = nil

	ticket := RenderReceipt(order)
	assert.NotContains(t, ticket, "ENTREGA:")
	assert.NotContains(t, ticket, "Desconto:")
	assert.NotContains(t, ticket, "Cupom:")
	assert.NotContains(t, ticket, "Entrega: +")
	assert.NotContains(t, ticket, "Sabores:")
	assert.NotContains(t, ticket, "Adicionais:")
	assert.NotContains(t, ticket, "Obs:")
	assert.NotContains(t, ticket, "Troco")
	assert.Equal(t, "Pagamento: PIX", pickLine(t, ticket, "Pagamento:"))
}

func pickLine(t *testing.T, ticket, prefix string) string {
	t.Helper()
	for _, line := range strings.Split(ticket, "\n") {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	require.Failf(t, "line not found", "no line starting with %q", prefix)
	return ""
}

func TestReceiptLoadsOrderByCode(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db, &stubBroadcaster{})
	seedCheckoutCart(t, db, "cartprint", "0")

	created, err := svc.Create(context.Background(), pickupInput("cartprint"))
	require.NoError(t, err)

	ticket, err := svc.Receipt(context.Background(), created.Code)
	require.NoError(t, err)
	assert.Contains(t, ticket, "COMANDA Nº "+created.Code)
	assert.Contains(t, ticket, "2x Pizza Calabresa")

	_, err = svc.Receipt(context.Background(), "nosuchcode")
	require.Error(t, err)
}
