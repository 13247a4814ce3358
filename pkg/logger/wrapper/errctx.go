package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx that was active where the error happened.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// ErrorCtx restores the LogCtx captured in err on top of ctx.
// Fields missing in the captured LogCtx are taken from ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
