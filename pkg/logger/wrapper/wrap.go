package wrap

import (
	"context"
)

// Error attaches the LogCtx of ctx to err.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	return &errorWithLogCtx{err: err, logCtx: fromContext(ctx)}
}
