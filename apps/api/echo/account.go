package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/user"
)

var errUnknownOrgCode = echo.NewHTTPError(http.StatusNotFound, "invalid organization code")

const errCannotRegisterAdmin = "admins can only be added by an organization administrator"

func registerAuthAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	// un-authed endpoints
	g.POST("/register/organization", s.registerOrganization)
	g.POST("/register", s.register)
	g.POST("/login", s.login)
	g.GET("/logout", s.logout)
	g.GET("/organization/:slug", s.organizationSummary)
	g.GET("/vapid-public-key", s.vapidPublicKey)

	// authed endpoints
	g.GET("/current-user", s.currentUser, authed...)
	g.POST("/token-refresh", s.tokenRefresh, authed...)
	g.POST("/push-subscription", s.pushSubscription, authed...)
	g.PUT("/required-percentage", s.requiredPercentage, authed...)
}

// Handlers

func (s *Server) registerOrganization(ctx echo.Context) error {
	var data OrgRegistrationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OrgRegistrationRequest")
	}
	no, nu, err := data.Validate(s.Validate)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	org, err := s.OrgSvc.Create(rctx, no)
	if err != nil {
		return errors.Wrap(err, "creating organization")
	}

	nu.OrganizationID = org.ID
	usr, err := s.UserSvc.Create(rctx, nu)
	if err != nil {
		if dErr := s.OrgSvc.Delete(rctx, org.ID); dErr != nil {
			s.Logger.Error("rolling back organization", dErr, map[string]interface{}{"organization": org.ID})
		}
		return errors.Wrap(err, "creating admin user")
	}

	return s.authResponse(ctx, http.StatusCreated, "Organization and user created successfully", usr, org)
}

func (s *Server) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	org, err := s.OrgSvc.GetBySlug(rctx, data.OrganizationCode)
	if err != nil {
		if errors.Cause(err) == organization.ErrNotFound {
			return errUnknownOrgCode
		}
		return errors.Wrap(err, "finding organization by slug")
	}
	if err = s.checkUserLimit(rctx, org); err != nil {
		return err
	}

	nu := data.NewUser
	nu.OrganizationID = org.ID
	if err = s.UserSvc.CheckUniqueness(rctx, org.ID, nu.Username, nu.Email); err != nil {
		return err
	}
	usr, err := s.UserSvc.Create(rctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	return s.authResponse(ctx, http.StatusCreated, "User registered successfully", usr, org)
}

func (s *Server) checkUserLimit(ctx context.Context, org organization.Organization) error {
	if org.MaxUsers <= 0 {
		return nil
	}
	stats, err := s.UserSvc.Stats(ctx, org.ID)
	if err != nil {
		return errors.Wrap(err, "counting users")
	}
	if stats.Total >= org.MaxUsers {
		return errOrgFull
	}
	return nil
}

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, org, err := s.authenticate(ctx, data.OrganizationCode, data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return s.authResponse(ctx, http.StatusOK, "Login successful", usr, org)
}

// logout only acknowledges: tokens are stateless and dropped by the client.
func (s *Server) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (s *Server) authResponse(ctx echo.Context, code int, msg string, usr user.User, org organization.Organization) error {
	token, err := GenerateToken(s.Conf, GetUserClaims(s.Conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, AuthResponse{Message: msg, Token: token, User: NewAccount(usr, org)})
}

func (s *Server) currentUser(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	org, err := getContextOrg(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, NewAccount(usr, org))
}

func (s *Server) tokenRefresh(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (s *Server) pushSubscription(ctx echo.Context) error {
	var data PushSubscriptionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PushSubscriptionRequest")
	}
	if err := s.Validate.Struct(data); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if _, err = s.UserSvc.SetPushSubscription(ctx.Request().Context(), usr, data.Subscription); err != nil {
		return errors.Wrap(err, "setting push subscription")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Push subscription updated successfully"})
}

func (s *Server) requiredPercentage(ctx echo.Context) error {
	var data RequiredPercentageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequiredPercentageRequest")
	}
	if err := s.Validate.Struct(data); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	usr, err = s.UserSvc.SetRequiredPercentage(ctx.Request().Context(), usr, *data.Percentage)
	if err != nil {
		return errors.Wrap(err, "setting required percentage")
	}
	return ctx.JSON(http.StatusOK, RequiredPercentageResponse{
		Message:            "Required attendance percentage updated successfully",
		RequiredPercentage: usr.RequiredPercentage,
	})
}

func (s *Server) organizationSummary(ctx echo.Context) error {
	org, err := s.OrgSvc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding organization by slug")
	}
	return ctx.JSON(http.StatusOK, org.Summary())
}

func (s *Server) vapidPublicKey(ctx echo.Context) error {
	if s.VAPIDPublicKey == "" {
		return errPushNotConfigured
	}
	return ctx.JSON(http.StatusOK, echo.Map{"public_key": s.VAPIDPublicKey})
}

type (
	OrgRegistrationRequest struct {
		OrganizationName string `json:"organization_name" validate:"required,notblank,max=100"`
		OrganizationType string `json:"organization_type"`
		Username         string `json:"username"`
		Email            string `json:"email"`
		Password         string `json:"password"`
		FirstName        string `json:"first_name"`
		LastName         string `json:"last_name"`
	}

	RegisterRequest struct {
		OrganizationCode string `json:"organization_code" validate:"required"`
		user.NewUser
	}

	LoginRequest struct {
		OrganizationCode string `json:"organization_code" validate:"required"`
		Username         string `json:"username" validate:"required"`
		Password         string `json:"password" validate:"required"`
	}

	PushSubscriptionRequest struct {
		Subscription *user.PushSubscription `json:"subscription"` // nil unsubscribes
	}

	RequiredPercentageRequest struct {
		Percentage *float64 `json:"percentage" validate:"required"`
	}

	// Account is the authenticated user as seen by the frontend.
	Account struct {
		ID                 string       `json:"id"`
		Username           string       `json:"username"`
		Email              string       `json:"email"`
		Role               string       `json:"role"`
		OrganizationID     string       `json:"organization_id"`
		OrganizationName   string       `json:"organization_name"`
		OrganizationSlug   string       `json:"organization_slug"`
		RequiredPercentage float64      `json:"required_attendance_percentage"`
		Profile            user.Profile `json:"profile"`
	}

	AuthResponse struct {
		Message string  `json:"message"`
		Token   string  `json:"token"`
		User    Account `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	RequiredPercentageResponse struct {
		Message            string  `json:"message"`
		RequiredPercentage float64 `json:"required_attendance_percentage"`
	}
)

func NewAccount(usr user.User, org organization.Organization) Account {
	return Account{
		ID:                 usr.ID,
		Username:           usr.Username,
		Email:              usr.Email,
		Role:               usr.Role,
		OrganizationID:     usr.OrganizationID,
		OrganizationName:   org.Name,
		OrganizationSlug:   org.Slug,
		RequiredPercentage: usr.RequiredPercentage,
		Profile:            usr.Profile,
	}
}

// Validate returns the organization and its first admin described by or.
func (or *OrgRegistrationRequest) Validate(validate *validator.Validate) (organization.NewOrganization, user.NewUser, error) {
	or.OrganizationName = core.CleanString(or.OrganizationName)
	if err := validate.Struct(or); err != nil {
		return organization.NewOrganization{}, user.NewUser{}, err
	}

	nu := user.NewUser{
		Username:  or.Username,
		Email:     or.Email,
		Password:  or.Password,
		Role:      user.RoleAdmin,
		FirstName: or.FirstName,
		LastName:  or.LastName,
	}
	if err := nu.ValidateFields(validate); err != nil {
		return organization.NewOrganization{}, user.NewUser{}, err
	}

	no := organization.NewOrganization{
		Name:         or.OrganizationName,
		Type:         or.OrganizationType,
		ContactEmail: nu.Email,
	}
	if err := no.Validate(validate); err != nil {
		return organization.NewOrganization{}, user.NewUser{}, err
	}
	return no, nu, nil
}

func (rr *RegisterRequest) Validate(validate *validator.Validate) error {
	rr.OrganizationCode = core.CleanString(rr.OrganizationCode, true /* lower */)
	if err := rr.NewUser.ValidateFields(validate); err != nil {
		return err
	}
	if err := validate.Struct(rr); err != nil {
		return err
	}
	if rr.Role == user.RoleAdmin {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errCannotRegisterAdmin})
	}
	return nil
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.OrganizationCode = core.CleanString(lr.OrganizationCode, true /* lower */)
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
