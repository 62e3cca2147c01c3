package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

// AddressInput is the delivery destination submitted at checkout. It is
// matched against the customer's saved addresses before a new row is created.
type AddressInput struct {
	Street       string
	Number       string
	Neighborhood string
	City         string
	Complement   *string
	Reference    *string
}

// ItemInput is an order line submitted directly, without a cart. Prices are
// never part of the input; the catalog resolves them server-side.
type ItemInput struct {
	ProductID   uuid.UUID
	Size        string
	Quantity    int
	Flavors     types.FlavorSelections
	Options     []string
	Observation *string
}

// CreateInput carries everything needed to create an order, either from a
// cart identified by CartCode or from request Items. Totals are never part of
// the input; they are recomputed server-side.
type CreateInput struct {
	CustomerName          string
	CustomerPhone         string
	CartCode              string
	Items                 []ItemInput
	DeliveryType          enums.DeliveryType
	PaymentMethod         enums.PaymentMethod
	Address               *AddressInput
	DeliveryFee           *decimal.Decimal
	CashTender            *decimal.Decimal
	Notes                 *string
	PrivacyPolicyAccepted bool
}

// ListFilters narrows the order listing.
type ListFilters struct {
	Status *enums.OrderStatus
}

// SearchFilters locates orders by the customer snapshot. At least one field
// must be set.
type SearchFilters struct {
	Name  string
	Phone string
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}
