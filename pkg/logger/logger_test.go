package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-1")

	log.Error(ctx, "boom", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"order_id":"order-1"`)
	assert.Contains(t, out, `"stack"`)
	assert.Contains(t, out, `"service":"test"`)
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestLoggerLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.WarnLevel, Output: buf})
	log.Info(context.Background(), "hidden")
	require.Empty(t, buf.String())
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}

func TestLoggerClientErrorsSkipStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	log.Error(context.Background(), "rejected", pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid"))
	out := buf.String()
	assert.Contains(t, out, `"error_code":"STATE_CONFLICT"`)
	assert.NotContains(t, out, `"stack"`)

	buf.Reset()
	log.Error(context.Background(), "gateway down", pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "stripe"))
	assert.Contains(t, buf.String(), `"stack"`)
}

func TestLoggerStaticFieldsAndNesting(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Fields: map[string]any{"instance": "web.1"}})

	ctx := log.WithFields(context.Background(), map[string]any{"env": "dev"})
	child := log.WithField(ctx, "job", "order-expiry")
	log.Info(child, "ran")
	log.Info(ctx, "parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"instance":"web.1"`)
	assert.Contains(t, string(lines[0]), `"job":"order-expiry"`)
	assert.Contains(t, string(lines[0]), `"env":"dev"`)
	assert.NotContains(t, string(lines[1]), `"job"`)
}

func TestNopLoggerWritesNothing(t *testing.T) {
	log := Nop()
	ctx := log.WithField(context.Background(), "k", "v")
	log.Error(ctx, "ignored", errors.New("x"))
}
