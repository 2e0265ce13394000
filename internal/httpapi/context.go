package httpapi

import (
	"context"
	"net/http"
)

// serverBaseCtx is canceled when the daemon begins shutting down.
var serverBaseCtx = context.Background()

// SetBaseContext installs the daemon lifetime context. Sessions opened
// through the API stop waiting on it once it is canceled. nil resets to
// Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// requestContext scopes r's context to the daemon lifetime.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return joinContexts(serverBaseCtx, r.Context())
}

// joinContexts derives from b a context that is also canceled when a is.
// cancel must be called to detach from a.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(b)
	stop := context.AfterFunc(a, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
