package enums

import "fmt"

// ShippingMethod is the delivery service level chosen for a shipment.
type ShippingMethod string

const (
	ShippingMethodStandard  ShippingMethod = "STANDARD"
	ShippingMethodExpress   ShippingMethod = "EXPRESS"
	ShippingMethodOvernight ShippingMethod = "OVERNIGHT"
	ShippingMethodPickup    ShippingMethod = "PICKUP"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodStandard,
	ShippingMethodExpress,
	ShippingMethodOvernight,
	ShippingMethodPickup,
}

// String implements fmt.Stringer.
func (m ShippingMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m ShippingMethod) IsValid() bool {
	for _, candidate := range validShippingMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseShippingMethod converts raw input into a ShippingMethod.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	for _, candidate := range validShippingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping method %q", value)
}
