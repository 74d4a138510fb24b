// Package webhooks holds what the gateway webhook adapters share.
package webhooks

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// DefaultDedupeTTL is long enough to cover a gateway's whole retry schedule.
const DefaultDedupeTTL = 72 * time.Hour

// Deduper claims gateway event ids in redis so a redelivered notification is
// acknowledged without being applied twice. It is only the first layer: the
// reconciler is idempotent on its own.
type Deduper struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewDeduper(store redis.IdempotencyStore, ttl time.Duration, scope string) (*Deduper, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency store required")
	}
	if ttl < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dedupe ttl must be non-negative")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dedupe scope required")
	}
	if ttl == 0 {
		ttl = DefaultDedupeTTL
	}
	return &Deduper{store: store, ttl: ttl, scope: scope}, nil
}

// Claim reports whether this caller is the first to see eventID.
func (d *Deduper) Claim(ctx context.Context, eventID string) (bool, error) {
	key, err := d.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := d.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook event")
	}
	return claimed, nil
}

// Release forgets eventID so the gateway's retry is processed again.
func (d *Deduper) Release(ctx context.Context, eventID string) error {
	key, err := d.key(eventID)
	if err != nil {
		return err
	}
	return d.store.Del(ctx, key)
}

func (d *Deduper) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	return d.store.IdempotencyKey(d.scope, eventID), nil
}
