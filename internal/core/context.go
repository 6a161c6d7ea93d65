package core

import (
	"context"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

type contextKey string

const (
	ctxKeyIPAddress contextKey = "client_ip"
	ctxKeyUserAgent contextKey = "client_ua"
)

// ContextWithIPAddress records the client address for import logs.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent records the client User-Agent for import logs.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// ContextWithActor records the user on whose behalf scales are created.
func ContextWithActor(ctx context.Context, userID int64) context.Context {
	return competency.WithActor(ctx, userID)
}

// GetIPAddressFromContext extracts IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetUserAgentFromContext extracts User-Agent from context.
func GetUserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// detachedContext keeps the values of ctx without its cancellation, so a
// confirmed import carries request metadata under its own timeout.
func detachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
