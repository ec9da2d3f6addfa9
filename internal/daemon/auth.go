package daemon

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"trimreview/internal/auth"
	"trimreview/internal/config"
	"trimreview/internal/instruction"
	"trimreview/internal/logging"
)

type callerKey struct{}

var anonymousAdmin = instruction.Identity{Name: "anonymous", Role: instruction.RoleAdmin}

// authMiddleware resolves the bearer token to a configured user and stores the
// caller on the request context. With no users configured every request is
// treated as an anonymous admin. It also tags the request with a correlation id.
func authMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)

		caller := anonymousAdmin
		if len(cfg.Users) > 0 {
			user, ok := cfg.LookupUser(auth.BearerToken(r))
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "unauthenticated", nil)
				return
			}
			caller = instruction.Identity{Name: user.Name, Role: instruction.Role(user.Role)}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, callerKey{}, caller)))
	})
}

func callerFrom(ctx context.Context) instruction.Identity {
	if caller, ok := ctx.Value(callerKey{}).(instruction.Identity); ok {
		return caller
	}
	return instruction.Identity{}
}
