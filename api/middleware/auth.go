package middleware

import (
	"net/http"
	"strings"

	"github.com/shopwire/shopwire-backend/api/responses"
	pkgAuth "github.com/shopwire/shopwire-backend/pkg/auth"
	"github.com/shopwire/shopwire-backend/pkg/config"
	pkgerrors "github.com/shopwire/shopwire-backend/pkg/errors"
	"github.com/shopwire/shopwire-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// claims. EventSource clients cannot set headers, so a token query
// parameter is accepted as a fallback for the stream endpoint.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithShopID(ctx, claims.ShopID.String())

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id": claims.UserID.String(),
					"shop_id": claims.ShopID.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
