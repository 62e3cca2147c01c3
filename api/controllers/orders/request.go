package orders

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/api/validators"
	orderssvc "github.com/thomaggio/thomaggio-backend/internal/orders"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	"github.com/thomaggio/thomaggio-backend/pkg/pagination"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

type addressRequest struct {
	Street       string  `json:"street" validate:"required"`
	Number       string  `json:"number" validate:"required"`
	Neighborhood string  `json:"neighborhood" validate:"required"`
	City         string  `json:"city" validate:"required"`
	Complement   *string `json:"complement,omitempty"`
	Reference    *string `json:"reference,omitempty"`
}

type orderItemRequest struct {
	ProductID   uuid.UUID              `json:"product_id" validate:"required"`
	Size        string                 `json:"size" validate:"required"`
	Quantity    int                    `json:"quantity" validate:"required,min=1"`
	Flavors     types.FlavorSelections `json:"flavors,omitempty"`
	Options     []string               `json:"options,omitempty"`
	Observation *string                `json:"observation,omitempty"`
}

type createOrderRequest struct {
	CustomerName          string             `json:"customer_name" validate:"required"`
	CustomerPhone         string             `json:"customer_phone" validate:"required"`
	CartCode              string             `json:"cart_code,omitempty"`
	Items                 []orderItemRequest `json:"items,omitempty"`
	DeliveryType          string             `json:"delivery_type" validate:"required"`
	PaymentMethod         string             `json:"payment_method" validate:"required"`
	Address               *addressRequest    `json:"address,omitempty"`
	DeliveryFee           *decimal.Decimal   `json:"delivery_fee,omitempty"`
	CashTender            *decimal.Decimal   `json:"cash_tender,omitempty"`
	Notes                 *string            `json:"notes,omitempty"`
	PrivacyPolicyAccepted bool               `json:"privacy_policy_accepted"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func toCreateInput(payload createOrderRequest) orderssvc.CreateInput {
	input := orderssvc.CreateInput{
		CustomerName:          validators.SanitizeString(payload.CustomerName, 120),
		CustomerPhone:         validators.SanitizeString(payload.CustomerPhone, 32),
		CartCode:              payload.CartCode,
		DeliveryType:          enums.DeliveryType(payload.DeliveryType),
		PaymentMethod:         enums.PaymentMethod(payload.PaymentMethod),
		DeliveryFee:           payload.DeliveryFee,
		CashTender:            payload.CashTender,
		Notes:                 payload.Notes,
		PrivacyPolicyAccepted: payload.PrivacyPolicyAccepted,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, orderssvc.ItemInput{
			ProductID:   item.ProductID,
			Size:        item.Size,
			Quantity:    item.Quantity,
			Flavors:     item.Flavors,
			Options:     item.Options,
			Observation: item.Observation,
		})
	}
	if payload.Address != nil {
		input.Address = &orderssvc.AddressInput{
			Street:       payload.Address.Street,
			Number:       payload.Address.Number,
			Neighborhood: payload.Address.Neighborhood,
			City:         payload.Address.City,
			Complement:   payload.Address.Complement,
			Reference:    payload.Address.Reference,
		}
	}
	return input
}

func paginationFromQuery(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}
