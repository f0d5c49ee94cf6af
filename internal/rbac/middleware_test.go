package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"callrounded-manager/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, role string, guard gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), 7, role))
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serve(t, RoleAdmin, RequireAnyRole(RoleUser)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdmin_UserForbidden(t *testing.T) {
	if code := serve(t, RoleUser, RequireAdmin()); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_MissingIdentity(t *testing.T) {
	if code := serve(t, "", RequireAnyRole(RoleUser)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAnyRole_UnknownRoleForbidden(t *testing.T) {
	if code := serve(t, "guest", RequireAnyRole(RoleUser)); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}
