package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client"

// ContextWithClient tags ctx with who asked for the work: a remote address
// for web requests, "cli" for the command line. It only feeds log fields.
func ContextWithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, ctxKeyClient, client)
}

// ClientFromContext returns the tag set by ContextWithClient, or "".
func ClientFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClient).(string); ok {
		return v
	}
	return ""
}
