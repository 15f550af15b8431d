package authscope

import (
	"net/http"
	"strings"
)

// Middleware authenticates every request behind it, following the
// extract→validate→inject-into-context→call-next shape of the teacher's
// TenantMiddleware (internal/middleware/tenant.go).
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				http.Error(w, `{"error":"AuthError","message":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}

			principal, err := v.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"AuthError","message":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
