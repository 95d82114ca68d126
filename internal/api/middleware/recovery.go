package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/wordchain-go/internal/api/apierr"
	"github.com/mcoot/wordchain-go/internal/middleware"
)

// Recovery turns handler panics into INTERNAL_ERROR responses
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
