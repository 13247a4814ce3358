package wrap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLogCtxMerges(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithAction(ctx, "start_trip")
	ctx = WithLogCtx(ctx, LogCtx{TripID: "trip-1"})

	lc := ctx.Value(LogCtxKey).(LogCtx)
	assert.Equal(t, "req-1", lc.RequestID)
	assert.Equal(t, "start_trip", lc.Action)
	assert.Equal(t, "trip-1", lc.TripID)
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestErrorCarriesContext(t *testing.T) {
	inner := WithAction(context.Background(), "stop_trip")
	inner = WithUserID(inner, "u-1")

	sentinel := errors.New("boom")
	err := fmt.Errorf("service: %w", Error(inner, sentinel))

	assert.ErrorIs(t, err, sentinel)

	outer := WithRequestID(context.Background(), "req-9")
	restored := ErrorCtx(outer, err)

	lc := restored.Value(LogCtxKey).(LogCtx)
	assert.Equal(t, "stop_trip", lc.Action)
	assert.Equal(t, "u-1", lc.UserID)
	assert.Equal(t, "req-9", lc.RequestID)
}

func TestErrorNil(t *testing.T) {
	assert.NoError(t, Error(context.Background(), nil))
	ctx := context.Background()
	assert.Equal(t, ctx, ErrorCtx(ctx, nil))
}
