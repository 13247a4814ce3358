package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		UserID    string
		RequestID string
		TripID    string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

func fromContext(ctx context.Context) LogCtx {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return lc
	}
	return LogCtx{}
}

// WithLogCtx merges newLc into the LogCtx already stored in ctx. Empty fields keep the old value.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	lc := fromContext(ctx)
	if newLc.Action != "" {
		lc.Action = newLc.Action
	}
	if newLc.UserID != "" {
		lc.UserID = newLc.UserID
	}
	if newLc.RequestID != "" {
		lc.RequestID = newLc.RequestID
	}
	if newLc.TripID != "" {
		lc.TripID = newLc.TripID
	}
	return context.WithValue(ctx, LogCtxKey, lc)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return WithLogCtx(ctx, LogCtx{UserID: userID})
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithLogCtx(ctx, LogCtx{RequestID: requestID})
}

func WithTripID(ctx context.Context, tripID string) context.Context {
	return WithLogCtx(ctx, LogCtx{TripID: tripID})
}

func WithAction(ctx context.Context, action string) context.Context {
	return WithLogCtx(ctx, LogCtx{Action: action})
}

// GetRequestID returns the request id stored in ctx or empty string.
func GetRequestID(ctx context.Context) string {
	return fromContext(ctx).RequestID
}

// GetAction returns the action stored in ctx or empty string.
func GetAction(ctx context.Context) string {
	return fromContext(ctx).Action
}
