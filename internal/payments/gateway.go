package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Checkout is everything a gateway needs to start collecting money for an order.
type Checkout struct {
	Order    *models.Order
	Items    []models.OrderItem
	Payment  *models.Payment
	SourceID string
}

// Session is the gateway's answer to Initiate.
type Session struct {
	// RedirectURL is where the customer completes payment; empty for gateways that settle inline.
	RedirectURL     string
	SessionID       string
	TransactionID   string
	Status          enums.PaymentStatus
	FailureReason   string
	GatewayResponse datatypes.JSON
}

// Gateway is one payment provider.
type Gateway interface {
	Kind() enums.PaymentGateway
	Initiate(ctx context.Context, checkout Checkout) (*Session, error)
	Refund(ctx context.Context, payment *models.Payment, amount decimal.Decimal, reason string) error
}

// Registry resolves a gateway by kind.
type Registry struct {
	gateways map[enums.PaymentGateway]Gateway
}

// NewRegistry indexes gateways by Kind. Later registrations win.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[enums.PaymentGateway]Gateway, len(gateways))}
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		r.gateways[gw.Kind()] = gw
	}
	return r
}

// Lookup returns the gateway for kind, or GATEWAY_NOT_IMPLEMENTED.
func (r *Registry) Lookup(kind enums.PaymentGateway) (Gateway, error) {
	if r != nil {
		if gw, ok := r.gateways[kind]; ok {
			if stub, isStub := gw.(*stubGateway); isStub {
				return nil, stub.unavailable()
			}
			return gw, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeGatewayNotImplemented, fmt.Sprintf("payment gateway %s is not implemented", kind))
}

// stubGateway reserves a gateway kind that has no integration yet.
type stubGateway struct {
	kind enums.PaymentGateway
}

// NewStubGateway registers kind as known but unavailable.
func NewStubGateway(kind enums.PaymentGateway) Gateway {
	return &stubGateway{kind: kind}
}

func (g *stubGateway) Kind() enums.PaymentGateway { return g.kind }

func (g *stubGateway) Initiate(context.Context, Checkout) (*Session, error) {
	return nil, g.unavailable()
}

func (g *stubGateway) Refund(context.Context, *models.Payment, decimal.Decimal, string) error {
	return g.unavailable()
}

func (g *stubGateway) unavailable() error {
	return pkgerrors.New(pkgerrors.CodeGatewayNotImplemented, fmt.Sprintf("%s integration is not available yet", g.kind))
}

// cashOnDeliveryGateway collects at the door: nothing to call.
type cashOnDeliveryGateway struct{}

func NewCashOnDeliveryGateway() Gateway {
	return cashOnDeliveryGateway{}
}

func (cashOnDeliveryGateway) Kind() enums.PaymentGateway { return enums.PaymentGatewayCOD }

func (cashOnDeliveryGateway) Initiate(_ context.Context, checkout Checkout) (*Session, error) {
	if checkout.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment required")
	}
	return &Session{Status: enums.PaymentStatusPending}, nil
}

func (cashOnDeliveryGateway) Refund(context.Context, *models.Payment, decimal.Decimal, string) error {
	return nil
}

// minorUnits converts a two-decimal amount into cents.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// fromMinorUnits converts cents back into a two-decimal amount.
func fromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
