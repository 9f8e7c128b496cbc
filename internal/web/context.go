package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/web/middleware"
)

// pipelineContext tags the request context with the client address for the
// pipeline's log lines.
func pipelineContext(r *http.Request) context.Context {
	return core.ContextWithClient(r.Context(), middleware.ClientIP(r))
}
