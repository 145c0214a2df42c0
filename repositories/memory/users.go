package memory

import (
	"context"
	"strings"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
)

type userRepo struct{ repos }

func (r userRepo) Create(ctx context.Context, user *models.UserAccount) error {
	return r.write(ctx, func(st *state) error {
		email := strings.ToLower(user.Email)
		key := repositories.UsernameKey(user.Username)
		for _, u := range st.users {
			if u.Email == email {
				return repositories.ErrUserEmailConflict
			}
			if repositories.UsernameKey(u.Username) == key {
				return repositories.ErrUserUsernameConflict
			}
		}
		user.Email = email
		if user.CreatedAt.IsZero() {
			user.CreatedAt = r.now()
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.UserAccount, error) {
	return r.find(ctx, func(u models.UserAccount) bool { return u.ID == id })
}

func (r userRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.UserAccount, error) {
	return r.GetByID(ctx, id)
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	email = strings.ToLower(email)
	return r.find(ctx, func(u models.UserAccount) bool { return u.Email == email })
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	key := repositories.UsernameKey(username)
	return r.find(ctx, func(u models.UserAccount) bool { return repositories.UsernameKey(u.Username) == key })
}

func (r userRepo) find(ctx context.Context, match func(models.UserAccount) bool) (*models.UserAccount, error) {
	var found *models.UserAccount
	err := r.read(ctx, func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return repositories.ErrUserNotFound
	})
	return found, err
}

func (r userRepo) update(ctx context.Context, id string, fn func(u *models.UserAccount) error) error {
	return r.write(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repositories.ErrUserNotFound
		}
		if err := fn(&u); err != nil {
			return err
		}
		st.users[id] = u
		return nil
	})
}

func (r userRepo) UpdateUsername(ctx context.Context, id, username string) error {
	return r.write(ctx, func(st *state) error {
		key := repositories.UsernameKey(username)
		for _, u := range st.users {
			if u.ID != id && repositories.UsernameKey(u.Username) == key {
				return repositories.ErrUserUsernameConflict
			}
		}
		u, ok := st.users[id]
		if !ok {
			return repositories.ErrUserNotFound
		}
		u.Username = username
		st.users[id] = u
		return nil
	})
}

func (r userRepo) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	return r.update(ctx, id, func(u *models.UserAccount) error {
		u.Status = status
		return nil
	})
}

func (r userRepo) UpdateCoinBalance(ctx context.Context, id string, balance int64) error {
	return r.update(ctx, id, func(u *models.UserAccount) error {
		u.CoinBalance = balance
		return nil
	})
}

func (r userRepo) List(ctx context.Context, filter models.UserFilter) ([]models.UserAccount, error) {
	var users []models.UserAccount
	search := repositories.UsernameKey(filter.Search)
	err := r.read(ctx, func(st *state) error {
		users = sortedValues(st.users,
			func(u models.UserAccount) bool {
				if search != "" && !strings.Contains(repositories.UsernameKey(u.Username), search) && !strings.Contains(u.Email, search) {
					return false
				}
				if filter.Role != nil && u.Role != *filter.Role {
					return false
				}
				return filter.Status == nil || u.Status == *filter.Status
			},
			func(a, b models.UserAccount) bool {
				if !a.CreatedAt.Equal(b.CreatedAt) {
					return a.CreatedAt.After(b.CreatedAt)
				}
				return a.ID < b.ID
			})
		return nil
	})
	return paginate(users, filter.Limit, filter.Offset), err
}
