package models

import (
	"github.com/google/uuid"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, in dependency order. Used by sqlite auto-migration.
func All() []any {
	return []any{
		&Product{},
		&ProductVariant{},
		&ProductInventory{},
		&Coupon{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Invoice{},
		&OrderTracking{},
		&Shipping{},
		&ReturnRequest{},
		&ReturnItem{},
		&OutboxEvent{},
	}
}
