package middleware

import (
	"fmt"
	"net/http"

	"PlannerEdu/internal/auth"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

// policies are matched against the echo route path.
var rbacPolicies = [][]string{
	{auth.RoleStudent, "/api/notifications", http.MethodGet},
	{auth.RoleStudent, "/api/notifications/:id/read", http.MethodPut},
	{auth.RoleStudent, "/api/notifications/read-all", http.MethodPut},

	{auth.RoleProfessor, "/api/notifications", http.MethodPost},
	{auth.RoleProfessor, "/api/notifications/settings", http.MethodGet},
	{auth.RoleProfessor, "/api/notifications/settings", http.MethodPut},
	{auth.RoleProfessor, "/api/notifications/dispatch", http.MethodPost},
	{auth.RoleProfessor, "/api/notifications/reminders", http.MethodPost},
}

// professors can do everything students can
var rbacRoles = [][]string{
	{auth.RoleProfessor, auth.RoleStudent},
}

// NewEnforcer builds the RBAC enforcer from the in-code model and policy.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(rbacPolicies); err != nil {
		return nil, fmt.Errorf("failed to load rbac policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicies(rbacRoles); err != nil {
		return nil, fmt.Errorf("failed to load rbac roles: %w", err)
	}
	return enforcer, nil
}

// CasbinMiddleware enforces RBAC on the route path and method. It must run
// after JWTMiddleware.
func CasbinMiddleware(enforcer *casbin.Enforcer, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*auth.JWTClaims)
			if !ok || claims == nil {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Unauthorized: missing user claims"})
			}
			obj := c.Path()
			act := c.Request().Method
			allowed, err := enforcer.Enforce(claims.Role, obj, act)
			if err != nil {
				log.Error("casbin enforce error", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "RBAC system error"})
			}
			if !allowed {
				log.Info("casbin denied", zap.String("role", claims.Role), zap.String("obj", obj), zap.String("act", act))
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: insufficient permissions"})
			}
			return next(c)
		}
	}
}
