package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/thomaggio/thomaggio-backend/internal/cart"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

type createCartRequest struct {
	WhatsappID *string `json:"whatsapp_id,omitempty"`
}

type updateCartRequest struct {
	WhatsappID   *string          `json:"whatsapp_id,omitempty"`
	Neighborhood *string          `json:"neighborhood,omitempty"`
	DeliveryFee  *decimal.Decimal `json:"delivery_fee,omitempty"`
}

type addItemRequest struct {
	ProductID   uuid.UUID              `json:"product_id" validate:"required"`
	Size        string                 `json:"size" validate:"required"`
	Quantity    int                    `json:"quantity" validate:"required,min=1"`
	Flavors     types.FlavorSelections `json:"flavors,omitempty"`
	Options     []string               `json:"options,omitempty"`
	Observation *string                `json:"observation,omitempty"`
}

type updateItemRequest struct {
	Quantity    int                     `json:"quantity" validate:"required,min=1"`
	Size        *string                 `json:"size,omitempty"`
	Flavors     *types.FlavorSelections `json:"flavors,omitempty"`
	Options     *[]string               `json:"options,omitempty"`
	Observation *string                 `json:"observation,omitempty"`
}

func toAddItemInput(payload addItemRequest) cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ProductID:   payload.ProductID,
		Size:        payload.Size,
		Quantity:    payload.Quantity,
		Flavors:     payload.Flavors,
		Options:     payload.Options,
		Observation: payload.Observation,
	}
}

func toUpdateItemInput(payload updateItemRequest) cartsvc.UpdateItemInput {
	return cartsvc.UpdateItemInput{
		Quantity:    payload.Quantity,
		Size:        payload.Size,
		Flavors:     payload.Flavors,
		Options:     payload.Options,
		Observation: payload.Observation,
	}
}

func toUpdateInput(payload updateCartRequest) cartsvc.UpdateInput {
	return cartsvc.UpdateInput{
		WhatsappID:   payload.WhatsappID,
		Neighborhood: payload.Neighborhood,
		DeliveryFee:  payload.DeliveryFee,
	}
}
