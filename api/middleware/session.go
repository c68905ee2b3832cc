package middleware

import (
	"net/http"
	"strings"

	"github.com/adorncommerce/adorn-backend/api/responses"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

const sessionTokenHeader = "X-Session-Token"

// Session requires the storefront session token that keys the caller's
// cart. The storefront generates it client-side and sends it on every
// cart-scoped request.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(sessionTokenHeader))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Token header required"))
				return
			}

			ctx := WithSessionToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
