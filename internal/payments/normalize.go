package payments

import (
	"encoding/json"

	"gorm.io/datatypes"
)

var gatewayResponseKeys = []string{
	"id",
	"object",
	"created",
	"livemode",
	"status",
	"amount",
	"amount_total",
	"currency",
	"payment_status",
	"metadata",
	"customer_email",
}

// NormalizeGatewayResponse reduces a gateway object to the whitelisted keys
// stored on the payment. Anything that does not marshal to a JSON object yields nil.
func NormalizeGatewayResponse(raw any) datatypes.JSON {
	if raw == nil {
		return nil
	}
	var encoded []byte
	switch v := raw.(type) {
	case []byte:
		encoded = v
	case json.RawMessage:
		encoded = v
	case datatypes.JSON:
		encoded = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		encoded = b
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil
	}
	kept := make(map[string]json.RawMessage, len(gatewayResponseKeys))
	for _, key := range gatewayResponseKeys {
		if value, ok := fields[key]; ok && string(value) != "null" {
			kept[key] = value
		}
	}
	out, err := json.Marshal(kept)
	if err != nil {
		return nil
	}
	return datatypes.JSON(out)
}
