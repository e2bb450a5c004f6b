package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
)

// RequireManager requires manager or admin role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, auth.ErrInvalidToken.Error())
			return
		}

		if !id.IsManager() {
			response.Forbidden(w, auth.ErrManagerAccessRequired.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireEmployee requires the token to carry an employee_id claim
func RequireEmployee(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, auth.ErrInvalidToken.Error())
			return
		}

		if id.EmployeeID == "" {
			response.Forbidden(w, auth.ErrEmployeeIDRequired.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
