package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/lpcsv/internal/core"
)

// WithRequestMetadata adds the client address and User-Agent to ctx for
// import logs.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, r.RemoteAddr)
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
