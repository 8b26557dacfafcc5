package rpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dexkeeper/fee-liquidator/liquidator/config"
)

// zerologMiddleware logs HTTP requests using zerolog
func zerologMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// zerologRecoverer recovers from panics and logs with zerolog
func zerologRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				Logger.Error().
					Interface("panic", rvr).
					Str("path", r.URL.Path).
					Msg("Recovered from panic")

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type principalKey struct{}

// authMiddleware resolves the bearer token to the principal it acts as.
// Tokens only establish identity; the owner check happens in the manager,
// so a valid token for a non-owner principal still gets 403 downstream.
func authMiddleware(tokens []config.AdminToken) func(http.Handler) http.Handler {
	byToken := make(map[string]common.Address, len(tokens))
	for _, t := range tokens {
		byToken[t.Token] = common.HexToAddress(t.Principal)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			principal, known := byToken[token]
			if !known {
				writeError(w, http.StatusUnauthorized, "unknown token")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// callerFrom returns the authenticated principal set by authMiddleware.
func callerFrom(ctx context.Context) (common.Address, bool) {
	principal, ok := ctx.Value(principalKey{}).(common.Address)
	return principal, ok
}
