package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	if usr.PushSubscription != nil {
		sub := *usr.PushSubscription
		usr.PushSubscription = &sub
	}
	return usr
}

func (repo *userRepository) CheckUniqueness(_ context.Context, orgID, username, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, usr := range repo.db.users {
		if usr.OrganizationID != orgID || excluded[usr.ID] {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr = copyUser(usr)
	usr.ID = newID()
	repo.db.users[usr.ID] = &usr
	return copyUser(usr), nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if filter.ID != "" && usr.ID != filter.ID {
			continue
		}
		if filter.OrganizationID != "" && usr.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Username != "" && usr.Username != filter.Username {
			continue
		}
		if filter.UsernameOrEmail != "" && usr.Username != filter.UsernameOrEmail && usr.Email != filter.UsernameOrEmail {
			continue
		}
		return copyUser(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func matchesSearch(usr *user.User, search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, s := range []string{usr.Username, usr.Email, usr.Profile.FirstName, usr.Profile.LastName} {
		if strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if filter.OrganizationID != "" && usr.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if !matchesSearch(usr, filter.Search) {
			continue
		}
		users = append(users, copyUser(*usr))
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool { return lessUser(users[i], users[j], ordering) })

	total := len(users)
	if offset := filter.Offset(); offset > 0 {
		if offset >= total {
			return []user.User{}, total, nil
		}
		users = users[offset:]
	}
	if filter.Limit > 0 && len(users) > filter.Limit {
		users = users[:filter.Limit]
	}
	return users, total, nil
}

func lessUser(a, b user.User, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "username":
			cmp = strings.Compare(a.Username, b.Username)
		case "email":
			cmp = strings.Compare(a.Email, b.Email)
		case "role":
			cmp = strings.Compare(a.Role, b.Role)
		case "created_at":
			cmp = compareTime(a.CreatedAt, b.CreatedAt)
		case "last_login":
			cmp = compareTime(a.LastLogin, b.LastLogin)
		}
		if cmp == 0 {
			continue
		}
		if ord.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return a.Username < b.Username
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (repo *userRepository) CountUsers(_ context.Context, orgID string) (user.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var stats user.Stats
	for _, usr := range repo.db.users {
		if usr.OrganizationID != orgID {
			continue
		}
		stats.Total++
		if usr.IsActive {
			stats.Active++
		}
		switch usr.Role {
		case user.RoleAdmin:
			stats.Admins++
		case user.RoleTeacher:
			stats.Teachers++
		case user.RoleStudent:
			stats.Students++
		}
	}
	return stats, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	usr = copyUser(usr)
	repo.db.users[usr.ID] = &usr
	return copyUser(usr), nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.deleteUser(id)
	return nil
}
