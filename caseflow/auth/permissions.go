package auth

import (
	"fmt"
	"net/http"
	"strings"

	"patentflow/caseflow/schema"
)

// AdminOnly gates routes that only admins may reach, e.g. user management and
// metadata mutation. The role set is taken from the verified session user,
// never from anything the client sent in the request itself.
func AdminOnly() func(http.Handler) http.Handler {
	return RequireRole(schema.RoleAdmin)
}

// RequireRole admits users holding at least one of the listed roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, fmt.Sprintf("user %v does not have any of the required roles (%v)", user.Id, strings.Join(roles, ", ")), http.StatusForbidden)
		}
		return http.HandlerFunc(hfn)
	}
}
