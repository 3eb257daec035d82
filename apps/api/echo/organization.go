package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/user"
)

func registerOrganizationAPI(g *echo.Group, s *Server) {
	g.GET("", s.getOrganization)
	g.PUT("", s.updateOrganization, adminOnly)

	g.GET("/users", s.listUsers, adminOnly)
	g.GET("/users/:userId", s.getUser, adminOnly)
	g.PATCH("/users/:userId", s.updateUser, adminOnly)
	g.DELETE("/users/:userId", s.deleteUser, adminOnly)
	g.GET("/stats", s.userStats, adminOnly)
}

func (s *Server) getOrganization(ctx echo.Context) error {
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, org)
}

func (s *Server) updateOrganization(ctx echo.Context) error {
	var data organization.UpdateOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to organization.UpdateOrganization")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	org, err = s.OrgSvc.Update(ctx.Request().Context(), org, data)
	if err != nil {
		return errors.Wrap(err, "updating organization")
	}
	return ctx.JSON(http.StatusOK, org)
}

type UserListResponse struct {
	Users      []user.User     `json:"users"`
	Pagination core.Pagination `json:"pagination"`
}

func (s *Server) listUsers(ctx echo.Context) error {
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	users, page, err := s.UserSvc.Query(ctx.Request().Context(), bindUserFilter(ctx, org.ID), bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, UserListResponse{Users: users, Pagination: page})
}

// contextMember returns the user identified by the "userId" path param among the context organization's users.
func (s *Server) contextMember(ctx echo.Context) (user.User, error) {
	org, err := getContextOrg(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := s.UserSvc.GetInOrganization(ctx.Request().Context(), org.ID, ctx.Param("userId"))
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting organization user")
	}
	return usr, nil
}

func (s *Server) getUser(ctx echo.Context) error {
	usr, err := s.contextMember(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	MemberStatus struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
		IsActive bool   `json:"is_active"`
	}

	UpdateUserResponse struct {
		Message string       `json:"message"`
		User    MemberStatus `json:"user"`
	}
)

func (s *Server) updateUser(ctx echo.Context) error {
	var data user.UpdateRoleStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to user.UpdateRoleStatus")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	usr, err := s.contextMember(ctx)
	if err != nil {
		return err
	}
	usr, err = s.UserSvc.UpdateRoleStatus(ctx.Request().Context(), actor, usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user role/status")
	}
	return ctx.JSON(http.StatusOK, UpdateUserResponse{
		Message: "User updated successfully",
		User:    MemberStatus{ID: usr.ID, Username: usr.Username, Role: usr.Role, IsActive: usr.IsActive},
	})
}

func (s *Server) deleteUser(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	usr, err := s.contextMember(ctx)
	if err != nil {
		return err
	}
	if err = s.UserSvc.Delete(ctx.Request().Context(), actor, usr); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func (s *Server) userStats(ctx echo.Context) error {
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	stats, err := s.UserSvc.Stats(ctx.Request().Context(), org.ID)
	if err != nil {
		return errors.Wrap(err, "counting users")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"users": stats})
}
