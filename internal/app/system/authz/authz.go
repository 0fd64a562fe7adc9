// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratadata/internal/app/system/auth"
	"github.com/dalemusser/stratadata/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadata/internal/app/system/normalize"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// UserCtx returns the user's role (lowercased), name, ID and a found flag.
// If no user is present, or the session carries no ID, it returns
// "visitor", "", "", false.
func UserCtx(r *http.Request) (role string, name string, userID string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID == "" {
		return "visitor", "", "", false
	}
	return normalize.Role(user.Role), user.Name, user.ID, true
}

// IsAdmin reports whether the current request's user is the global admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsLoggedIn reports whether there is a user in the request context.
func IsLoggedIn(r *http.Request) bool {
	_, _, _, ok := UserCtx(r)
	return ok
}

// HasRole reports whether the current user has one of the specified roles.
func HasRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, allowed := range roles {
		if normalize.Role(allowed) == role {
			return true
		}
	}
	return false
}

// CanManage reports whether the current user may see and edit data in c.
func CanManage(r *http.Request, c models.Category) bool {
	role, _, _, ok := UserCtx(r)
	return ok && models.CanManageCategory(role, c)
}

type ctxKey struct{}

// RequireCategory returns middleware that reads the category from the chi
// URL parameter param and admits only users who manage it. An unknown
// category is 404, a signed-out request 401, and another category's
// admin 403. The category is stored in the request context for
// handlers; read it with Category.
func RequireCategory(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := normalize.Category(chi.URLParam(r, param))
			if !models.IsValidCategory(raw) {
				jsonutil.NotFound(w, "unknown category")
				return
			}
			c := models.Category(raw)
			if !IsLoggedIn(r) {
				jsonutil.Unauthorized(w, "sign in required")
				return
			}
			if !CanManage(r, c) {
				jsonutil.Forbidden(w, "you do not manage this category")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
		})
	}
}

// Category returns the category admitted by RequireCategory.
func Category(r *http.Request) (models.Category, bool) {
	c, ok := r.Context().Value(ctxKey{}).(models.Category)
	return c, ok
}
