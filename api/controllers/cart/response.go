package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

// CartView is the public shape of a cart. Subtotal and Total are derived on
// the way out; the rows never store them.
type CartView struct {
	Code               string           `json:"code"`
	Status             string           `json:"status"`
	WhatsappID         *string          `json:"whatsapp_id,omitempty"`
	Neighborhood       *string          `json:"neighborhood,omitempty"`
	DeliveryFee        decimal.Decimal  `json:"delivery_fee"`
	PromoCode          *string          `json:"promo_code,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountValue      *decimal.Decimal `json:"discount_value,omitempty"`
	Items              []CartItemView   `json:"items"`
	Subtotal           decimal.Decimal  `json:"subtotal"`
	Total              decimal.Decimal  `json:"total"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type CartItemView struct {
	ID          uuid.UUID              `json:"id"`
	ProductID   uuid.UUID              `json:"product_id"`
	ProductName string                 `json:"product_name"`
	Size        string                 `json:"size"`
	Quantity    int                    `json:"quantity"`
	UnitPrice   decimal.Decimal        `json:"unit_price"`
	Flavors     types.FlavorSelections `json:"flavors,omitempty"`
	Options     types.OptionPrices     `json:"options,omitempty"`
	Observation *string                `json:"observation,omitempty"`
	Subtotal    decimal.Decimal        `json:"subtotal"`
}

func newCartView(record *models.Cart) CartView {
	items := make([]CartItemView, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, CartItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Flavors:     item.Flavors,
			Options:     item.Options,
			Observation: item.Observation,
			Subtotal:    item.LineSubtotal(),
		})
	}
	return CartView{
		Code:               record.Code,
		Status:             record.Status.String(),
		WhatsappID:         record.WhatsappID,
		Neighborhood:       record.Neighborhood,
		DeliveryFee:        record.DeliveryFee,
		PromoCode:          record.PromoCode,
		DiscountPercentage: record.DiscountPercentage,
		DiscountValue:      record.DiscountValue,
		Items:              items,
		Subtotal:           record.Total(),
		Total:              record.TotalWithDiscount(),
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}
