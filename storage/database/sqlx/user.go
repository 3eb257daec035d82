package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/user"
)

var userColumns = []string{
	"id", "organization_id", "username", "email", "role", "first_name", "last_name", "student_id", "employee_id",
	"phone", "avatar", "required_percentage", "push_endpoint", "push_p256dh", "push_auth", "is_active",
	"password_hash", "last_login", "created_at", "updated_at",
}

type userRow struct {
	ID                 string         `db:"id"`
	OrganizationID     string         `db:"organization_id"`
	Username           string         `db:"username"`
	Email              string         `db:"email"`
	Role               string         `db:"role"`
	FirstName          string         `db:"first_name"`
	LastName           string         `db:"last_name"`
	StudentID          string         `db:"student_id"`
	EmployeeID         string         `db:"employee_id"`
	Phone              string         `db:"phone"`
	Avatar             string         `db:"avatar"`
	RequiredPercentage float64        `db:"required_percentage"`
	PushEndpoint       sql.NullString `db:"push_endpoint"`
	PushP256dh         sql.NullString `db:"push_p256dh"`
	PushAuth           sql.NullString `db:"push_auth"`
	IsActive           bool           `db:"is_active"`
	PasswordHash       []byte         `db:"password_hash"`
	LastLogin          sql.NullTime   `db:"last_login"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r userRow) values() []interface{} {
	return []interface{}{
		r.ID, r.OrganizationID, r.Username, r.Email, r.Role, r.FirstName, r.LastName, r.StudentID, r.EmployeeID,
		r.Phone, r.Avatar, r.RequiredPercentage, r.PushEndpoint, r.PushP256dh, r.PushAuth, r.IsActive,
		r.PasswordHash, r.LastLogin, r.CreatedAt, r.UpdatedAt,
	}
}

func toUserRow(usr user.User) userRow {
	r := userRow{
		ID:                 usr.ID,
		OrganizationID:     usr.OrganizationID,
		Username:           usr.Username,
		Email:              usr.Email,
		Role:               usr.Role,
		FirstName:          usr.Profile.FirstName,
		LastName:           usr.Profile.LastName,
		StudentID:          usr.Profile.StudentID,
		EmployeeID:         usr.Profile.EmployeeID,
		Phone:              usr.Profile.Phone,
		Avatar:             usr.Profile.Avatar,
		RequiredPercentage: usr.RequiredPercentage,
		IsActive:           usr.IsActive,
		PasswordHash:       usr.PasswordHash,
		LastLogin:          nullTime(usr.LastLogin),
		CreatedAt:          usr.CreatedAt.UTC(),
		UpdatedAt:          usr.UpdatedAt.UTC(),
	}
	if sub := usr.PushSubscription; sub != nil {
		r.PushEndpoint = sql.NullString{String: sub.Endpoint, Valid: true}
		r.PushP256dh = sql.NullString{String: sub.Keys.P256dh, Valid: true}
		r.PushAuth = sql.NullString{String: sub.Keys.Auth, Valid: true}
	}
	return r
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Username:       r.Username,
		Email:          r.Email,
		Role:           r.Role,
		Profile: user.Profile{
			FirstName:  r.FirstName,
			LastName:   r.LastName,
			StudentID:  r.StudentID,
			EmployeeID: r.EmployeeID,
			Phone:      r.Phone,
			Avatar:     r.Avatar,
		},
		RequiredPercentage: r.RequiredPercentage,
		IsActive:           r.IsActive,
		PasswordHash:       r.PasswordHash,
		LastLogin:          fromNullTime(r.LastLogin),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if r.PushEndpoint.Valid {
		sub := &user.PushSubscription{Endpoint: r.PushEndpoint.String}
		sub.Keys.P256dh = r.PushP256dh.String
		sub.Keys.Auth = r.PushAuth.String
		usr.PushSubscription = sub
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// trapUniqueErr maps the unique constraints of the users table to the user errors.
func trapUniqueErr(err error, msg string) error {
	if constraint, ok := uniqueConstraint(err); ok {
		if strings.Contains(constraint, "email") {
			return user.ErrEmailExists
		}
		return user.ErrUsernameExists
	}
	return errors.Wrap(err, msg)
}

func uniquenessBuilder(orgID, username, email string, excludedIDs []string) sq.SelectBuilder {
	b := psql.Select("username", "email").From("users").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}})
	if len(excludedIDs) > 0 {
		b = b.Where(sq.NotEq{"id": excludedIDs})
	}
	return b
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, orgID, username, email string, excludedIDs ...string) error {
	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := selectAll(ctx, repo.db, &rows, uniquenessBuilder(orgID, username, email, excludedIDs)); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	b := psql.Insert("users").Columns(userColumns...).Values(toUserRow(usr).values()...)
	if _, err := exec(ctx, repo.db, b); err != nil {
		return user.User{}, trapUniqueErr(err, "inserting user")
	}
	return usr, nil
}

func getUserFilter(filter user.GetFilter) sq.And {
	where := sq.And{}
	if filter.ID != "" {
		where = append(where, sq.Eq{"id": filter.ID})
	}
	if filter.OrganizationID != "" {
		where = append(where, sq.Eq{"organization_id": filter.OrganizationID})
	}
	if filter.Username != "" {
		where = append(where, sq.Eq{"username": filter.Username})
	}
	if filter.UsernameOrEmail != "" {
		where = append(where, sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	}
	return where
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	b := psql.Select(userColumns...).From("users").Where(getUserFilter(filter)).Limit(1)
	if err := get(ctx, repo.db, &row, b); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func queryUsersFilter(filter user.QueryFilter) sq.And {
	where := sq.And{}
	if filter.OrganizationID != "" {
		where = append(where, sq.Eq{"organization_id": filter.OrganizationID})
	}
	if filter.Role != "" {
		where = append(where, sq.Eq{"role": filter.Role})
	}
	if filter.IsActive != nil {
		where = append(where, sq.Eq{"is_active": *filter.IsActive})
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		where = append(where, sq.Or{
			sq.Expr("username ILIKE ?", pattern),
			sq.Expr("email ILIKE ?", pattern),
			sq.Expr("first_name ILIKE ?", pattern),
			sq.Expr("last_name ILIKE ?", pattern),
		})
	}
	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func queryUsersBuilder(filter user.QueryFilter, ordering []core.DBOrdering) sq.SelectBuilder {
	b := psql.Select(userColumns...).From("users").Where(queryUsersFilter(filter))
	if len(ordering) == 0 {
		b = b.OrderBy("created_at DESC")
	}
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}
	b = b.OrderBy("username ASC")
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset()))
	}
	return b
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, int, error) {
	var total int
	count := psql.Select("COUNT(*)").From("users").Where(queryUsersFilter(filter))
	if err := get(ctx, repo.db, &total, count); err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, queryUsersBuilder(filter, ordering)); err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, total, nil
}

func countUsersBuilder(orgID string) sq.SelectBuilder {
	return psql.Select(
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE is_active) AS active",
		"COUNT(*) FILTER (WHERE role = 'admin') AS admins",
		"COUNT(*) FILTER (WHERE role = 'teacher') AS teachers",
		"COUNT(*) FILTER (WHERE role = 'student') AS students",
	).From("users").Where(sq.Eq{"organization_id": orgID})
}

func (repo *userRepository) CountUsers(ctx context.Context, orgID string) (user.Stats, error) {
	var row struct {
		Total    int `db:"total"`
		Active   int `db:"active"`
		Admins   int `db:"admins"`
		Teachers int `db:"teachers"`
		Students int `db:"students"`
	}
	if err := get(ctx, repo.db, &row, countUsersBuilder(orgID)); err != nil {
		return user.Stats{}, errors.Wrap(err, "counting users")
	}
	return user.Stats(row), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	vals := toUserRow(usr).values()
	set := make(map[string]interface{}, len(userColumns))
	for i, col := range userColumns {
		if col == "id" || col == "organization_id" || col == "created_at" {
			continue
		}
		set[col] = vals[i]
	}

	res, err := exec(ctx, repo.db, psql.Update("users").SetMap(set).Where(sq.Eq{"id": usr.ID}))
	if err != nil {
		return user.User{}, trapUniqueErr(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	_, err := exec(ctx, repo.db, psql.Delete("users").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting user")
}
