package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/user"
)

// authMiddleware loads the user of the JWT and their organization into the context.
// Both must exist and be active.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}

		rctx := ctx.Request().Context()
		usr, err := s.UserSvc.GetByID(rctx, claims.Subject)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return errUserNotFound
			}
			return errors.Wrap(err, "finding user by ID")
		}

		org, err := s.OrgSvc.GetByID(rctx, usr.OrganizationID)
		if err != nil {
			if errors.Cause(err) == organization.ErrNotFound {
				return errOrgNotFound
			}
			return errors.Wrap(err, "finding organization by ID")
		}
		if !org.IsActive {
			return errOrgInactive
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}

		ctx.Set(contextUserKey, usr)
		ctx.Set(contextOrgKey, org)
		return next(ctx)
	}
}

// roleMiddleware only lets through the users having one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHTTPForbidden
		}
	}
}

var (
	adminOnly      = roleMiddleware(user.RoleAdmin)
	teacherOrAdmin = roleMiddleware(user.RoleTeacher, user.RoleAdmin)
)
