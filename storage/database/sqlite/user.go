package sqliterepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/user"
)

type userRepository struct {
	db core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID        int64        `db:"id"`
	Username  string       `db:"username"`
	Email     string       `db:"email"`
	Password  []byte       `db:"password"`
	Role      string       `db:"role"`
	FullName  string       `db:"full_name"`
	Active    bool         `db:"active"`
	CreatedAt time.Time    `db:"created_at"`
	LastLogin sql.NullTime `db:"last_login"`
}

var userColumns = []string{"id", "username", "email", "password", "role", "full_name", "active", "created_at", "last_login"}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FullName:     r.FullName,
		Role:         r.Role,
		IsActive:     r.Active,
		PasswordHash: r.Password,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

func (repo userRepository) getUser(ctx context.Context, pred interface{}) (user.User, error) {
	query, args, err := sb.Select(userColumns...).From("users").Where(pred).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]int64, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		exclIDs = append(exclIDs, u.ID)
	}

	for _, check := range []struct {
		column, value string
		exists        error
	}{
		{"username", username, user.ErrUsernameExists},
		{"email", email, user.ErrEmailExists},
	} {
		b := sb.Select("COUNT(*)").From("users").Where(sq.Eq{check.column: check.value})
		if len(exclIDs) > 0 {
			b = b.Where(sq.NotEq{"id": exclIDs})
		}
		query, args, err := b.ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		var count int
		if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if count > 0 {
			return check.exists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := sb.Insert("users").
		Columns("username", "email", "password", "role", "full_name", "active", "created_at").
		Values(usr.Username, usr.Email, usr.PasswordHash, usr.Role, usr.FullName, usr.IsActive, usr.CreatedAt).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isUniqueErr(err, "users.username"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueErr(err, "users.email"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID, err = res.LastInsertId()
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting inserted user ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	return repo.getUser(ctx, sq.Eq{"id": id})
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, sq.Eq{"email": email})
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, sq.Or{sq.Eq{"username": username}, sq.Eq{"email": username}})
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	b := sb.Select(userColumns...).From("users").OrderBy("full_name")
	if filter.Role != "" {
		b = b.Where(sq.Eq{"role": filter.Role})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"active": *filter.IsActive})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := sb.Update("users").
		Set("username", usr.Username).
		Set("email", usr.Email).
		Set("password", usr.PasswordHash).
		Set("full_name", usr.FullName).
		Set("active", usr.IsActive).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SetUserLastLogin(ctx context.Context, id int64, t time.Time) error {
	query, args, err := sb.Update("users").Set("last_login", t).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return nil
}

func (repo userRepository) DeactivateUser(ctx context.Context, id int64, role string) error {
	query, args, err := sb.Update("users").
		Set("active", false).
		Where(sq.Eq{"id": id, "role": role}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "deactivating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}
