package httpapi

import (
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	headerUserID    = "X-User-ID"
	headerUserRoles = "X-User-Roles"
)

// principalHandler — обработчик, требующий аутентифицированного субъекта.
type principalHandler func(w http.ResponseWriter, r *http.Request, principal domain.Principal)

// withPrincipal извлекает субъекта из доверенных заголовков.
// Запрос без X-User-ID отклоняется с 401.
func (s *Server) withPrincipal(next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(headerUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "authentication required", nil)
			return
		}

		principal := domain.Principal{UserID: userID}
		for _, raw := range strings.Split(r.Header.Get(headerUserRoles), ",") {
			role := domain.Role(strings.TrimSpace(raw))
			if role == domain.RoleCustomer || role == domain.RoleAdmin {
				principal.Roles = append(principal.Roles, role)
			}
		}

		next(w, r, principal)
	}
}
