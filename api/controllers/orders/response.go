package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	orderssvc "github.com/thomaggio/thomaggio-backend/internal/orders"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

// OrderView is the public shape of an order snapshot.
type OrderView struct {
	ID            uuid.UUID        `json:"id"`
	Code          string           `json:"code"`
	Status        string           `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	DeliveryType  string           `json:"delivery_type"`
	PaymentMethod string           `json:"payment_method"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	DeliveryFee   decimal.Decimal  `json:"delivery_fee"`
	Total         decimal.Decimal  `json:"total"`
	PromoCode     *string          `json:"promo_code,omitempty"`
	CashTender    *decimal.Decimal `json:"cash_tender,omitempty"`
	CashChange    *decimal.Decimal `json:"cash_change,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Address       *AddressView     `json:"address,omitempty"`
	Items         []OrderItemView  `json:"items,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type AddressView struct {
	Street       string  `json:"street"`
	Number       string  `json:"number"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	Complement   *string `json:"complement,omitempty"`
	Reference    *string `json:"reference,omitempty"`
}

type OrderItemView struct {
	ProductID   uuid.UUID              `json:"product_id"`
	ProductName string                 `json:"product_name"`
	Size        string                 `json:"size"`
	Quantity    int                    `json:"quantity"`
	UnitPrice   decimal.Decimal        `json:"unit_price"`
	Flavors     types.FlavorSelections `json:"flavors,omitempty"`
	Options     types.OptionPrices     `json:"options,omitempty"`
	Observation *string                `json:"observation,omitempty"`
	LineTotal   decimal.Decimal        `json:"line_total"`
}

type orderPage struct {
	Orders     []OrderView `json:"orders"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

func newOrderView(record *models.Order) OrderView {
	items := make([]OrderItemView, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, OrderItemView{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Flavors:     item.Flavors,
			Options:     item.Options,
			Observation: item.Observation,
			LineTotal:   item.LineTotal,
		})
	}

	view := OrderView{
		ID:            record.ID,
		Code:          record.Code,
		Status:        record.Status.String(),
		PaymentStatus: record.PaymentStatus.String(),
		CustomerName:  record.CustomerName,
		CustomerPhone: record.CustomerPhone,
		DeliveryType:  record.DeliveryType.String(),
		PaymentMethod: record.PaymentMethod.String(),
		Subtotal:      record.Subtotal,
		DiscountValue: record.DiscountValue,
		DeliveryFee:   record.DeliveryFee,
		Total:         record.Total,
		PromoCode:     record.PromoCode,
		CashTender:    record.CashTender,
		CashChange:    record.CashChange,
		Notes:         record.Notes,
		Items:         items,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.Address != nil {
		view.Address = &AddressView{
			Street:       record.Address.Street,
			Number:       record.Address.Number,
			Neighborhood: record.Address.Neighborhood,
			City:         record.Address.City,
			Complement:   record.Address.Complement,
			Reference:    record.Address.Reference,
		}
	}
	return view
}

func newOrderPage(list *orderssvc.OrderList) orderPage {
	views := make([]OrderView, 0, len(list.Orders))
	for i := range list.Orders {
		views = append(views, newOrderView(&list.Orders[i]))
	}
	return orderPage{Orders: views, NextCursor: list.NextCursor}
}
