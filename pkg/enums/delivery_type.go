package enums

// DeliveryType distinguishes doorstep delivery from counter pickup.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

var validDeliveryTypes = []DeliveryType{
	DeliveryTypeDelivery,
	DeliveryTypePickup,
}

func (d DeliveryType) String() string { return string(d) }

func (d DeliveryType) IsValid() bool {
	for _, valid := range validDeliveryTypes {
		if d == valid {
			return true
		}
	}
	return false
}

// RequiresAddress reports whether orders of this type must carry a delivery
// address.
func (d DeliveryType) RequiresAddress() bool {
	return d == DeliveryTypeDelivery
}

func ParseDeliveryType(raw string) (DeliveryType, bool) {
	candidate := DeliveryType(raw)
	return candidate, candidate.IsValid()
}
