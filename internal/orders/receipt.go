package orders

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
)

// Kitchen tickets target 24-column thermal printers.
const receiptWidth = 24

var receiptStatus = map[enums.OrderStatus]string{
	enums.OrderStatusPending:   "PENDENTE",
	enums.OrderStatusPreparing: "PREPARANDO",
	enums.OrderStatusReady:     "PRONTO",
	enums.OrderStatusDelivered: "ENTREGUE",
	enums.OrderStatusCanceled:  "CANCELADO",
}

var receiptPayment = map[enums.PaymentMethod]string{
	enums.PaymentMethodPIX:  "PIX",
	enums.PaymentMethodCash: "DINHEIRO",
	enums.PaymentMethodCard: "CARTÃO",
}

// RenderReceipt formats an order as a plain-text kitchen ticket.
func RenderReceipt(order *models.Order) string {
	rule := strings.Repeat("=", receiptWidth)
	thin := strings.Repeat("-", receiptWidth)

	lines := []string{
		rule,
		centerText("COMANDA Nº " + order.Code),
		rule,
		"Data: " + order.CreatedAt.Format("02/01/2006 15:04"),
		"Status: " + translate(receiptStatus, order.Status, strings.ToUpper(order.Status.String())),
		thin,
		"CLIENTE: " + order.CustomerName,
		"TEL: " + order.CustomerPhone,
	}

	if order.Address != nil {
		lines = append(lines, thin, "ENTREGA:")
		lines = append(lines, fmt.Sprintf("%s, %s", order.Address.Street, order.Address.Number))
		if order.Address.Complement != nil {
			lines = append(lines, "Comp: "+*order.Address.Complement)
		}
		lines = append(lines, order.Address.Neighborhood, order.Address.City)
		if order.Address.Reference != nil {
			lines = append(lines, "Ref: "+*order.Address.Reference)
		}
	}

	lines = append(lines, rule, centerText("ITENS DO PEDIDO"), rule)
	for _, item := range order.Items {
		lines = append(lines, fmt.Sprintf("%dx %s", item.Quantity, clip(item.ProductName, 28)))
		if item.Size != "" {
			lines = append(lines, "Tam: "+item.Size)
		}
		if len(item.Flavors) > 0 {
			lines = append(lines, "Sabores:")
			for _, flavor := range item.Flavors {
				lines = append(lines, fmt.Sprintf("- %s (%dx)", flavor.Name, flavor.Quantity))
			}
		}
		if len(item.Options) > 0 {
			lines = append(lines, "Adicionais:")
			for _, name := range sortedOptionNames(item.Options) {
				price := item.Options[name]
				if price.IsPositive() {
					lines = append(lines, fmt.Sprintf("+ %s (+%s)", name, brl(price)))
				}
			}
		}
		if item.Observation != nil {
			lines = append(lines, "Obs: "+clip(*item.Observation, 28))
		}
		lines = append(lines, "R$ "+brl(item.LineTotal), thin)
	}

	lines = append(lines, "Subtotal: R$ "+brl(order.Subtotal))
	if order.DiscountValue.IsPositive() {
		lines = append(lines, "Desconto: -R$ "+brl(order.DiscountValue))
		coupon := "Aplicado"
		if order.PromoCode != nil {
			coupon = *order.PromoCode
		}
		lines = append(lines, "Cupom: "+coupon)
		lines = append(lines, "Total c/ desc: R$ "+brl(order.Subtotal.Sub(order.DiscountValue)))
	}
	if order.DeliveryFee.IsPositive() {
		lines = append(lines, "Entrega: +R$ "+brl(order.DeliveryFee))
	}

	lines = append(lines, rule, "TOTAL GERAL: R$ "+brl(order.Total))
	lines = append(lines, "Pagamento: "+translate(receiptPayment, order.PaymentMethod, strings.ToUpper(order.PaymentMethod.String())))
	if order.PaymentMethod == enums.PaymentMethodCash && order.CashTender != nil {
		lines = append(lines, "Troco p/: R$ "+brl(*order.CashTender))
		if order.CashChange != nil && order.CashChange.IsPositive() {
			lines = append(lines, "Troco: R$ "+brl(*order.CashChange))
		}
	}

	lines = append(lines, rule, centerText("OBRIGADO PELA PREFERÊNCIA!"), rule)
	return strings.Join(lines, "\n")
}

func translate[K comparable](table map[K]string, key K, fallback string) string {
	if label, ok := table[key]; ok {
		return label
	}
	return fallback
}

// brl renders a decimal in pt-BR notation, comma as the decimal separator.
func brl(value decimal.Decimal) string {
	return strings.ReplaceAll(value.StringFixed(2), ".", ",")
}

func centerText(text string) string {
	pad := receiptWidth - utf8.RuneCountInString(text)
	if pad <= 0 {
		return text
	}
	return strings.Repeat(" ", pad/2) + text
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func sortedOptionNames(options map[string]decimal.Decimal) []string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
