package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	contextOrgKey   = "organization"
)

var nowFunc = time.Now // mockable

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt   int64  `json:"oriat,omitempty"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	Role           string `json:"role,omitempty"`
}

// GetUserClaims returns the claims of usr. origIat keeps the first issue time across refreshes.
func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:   oriat,
		Username:       usr.Username,
		Email:          usr.Email,
		OrganizationID: usr.OrganizationID,
		Role:           usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	cfg := newJWTConfig(conf)
	method := jwt.GetSigningMethod(cfg.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the authenticated user set by authMiddleware.
func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// getContextOrg returns the organization of the authenticated user set by authMiddleware.
func getContextOrg(ctx echo.Context) (organization.Organization, error) {
	if org, ok := ctx.Get(contextOrgKey).(organization.Organization); ok {
		return org, nil
	}
	return organization.Organization{}, errUnauthorized
}

// authenticate checks the credentials of a user of the organization identified by orgCode.
func (s *Server) authenticate(ctx echo.Context, orgCode, uname, pwd string) (user.User, organization.Organization, error) {
	rctx := ctx.Request().Context()
	org, err := s.OrgSvc.GetBySlug(rctx, orgCode)
	if err != nil {
		if errors.Cause(err) == organization.ErrNotFound {
			return user.User{}, organization.Organization{}, errInvalidOrgCode
		}
		return user.User{}, organization.Organization{}, errors.Wrap(err, "finding organization by slug")
	}

	usr, err := s.UserSvc.GetByUsername(rctx, org.ID, uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, organization.Organization{}, errAuthenticationFailed
		}
		return user.User{}, organization.Organization{}, errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, organization.Organization{}, errAuthenticationFailed
	}
	if !usr.IsActive {
		return user.User{}, organization.Organization{}, errAccountDeactivated
	}

	usr, err = s.UserSvc.SetLastLogin(rctx, usr)
	if err != nil {
		return user.User{}, organization.Organization{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, org, nil
}

func (s *Server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.Conf.Server.JWTRefreshExpirationDelta)
	if nowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(s.Conf, GetUserClaims(s.Conf, usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
