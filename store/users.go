package store

import (
	"context"
	"database/sql"
	"errors"
)

type (
	// User is a stored account together with every role linked to it.
	User struct {
		ID           int64
		Username     string
		PasswordHash string
		Roles        []string
	}

	UserRole struct {
		ID       int64  `json:"Id"`
		Username string `json:"Username"`
		Role     string `json:"Role"`
	}
)

// Credentials loads the user called username and all of its roles.
// A user without any role is reported as ErrNotFound.
func (s *Store) Credentials(ctx context.Context, username string) (User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(`select u.id, u.username, u.password, r.role_name
	from users u
	inner join user_roles ur on ur.user_id = u.id
	inner join roles r on r.id = ur.role_id
	where u.username = ?
	order by r.id`), username)
	if err != nil {
		return User{}, s.fail(ctx, err, "load credentials")
	}
	defer rows.Close()
	var u User
	for rows.Next() {
		var role string
		err = rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
		if err != nil {
			return User{}, s.fail(ctx, err, "scan credentials")
		}
		u.Roles = append(u.Roles, role)
	}
	if err = rows.Err(); err != nil {
		return User{}, s.fail(ctx, err, "load credentials")
	}
	if len(u.Roles) == 0 {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := s.count(ctx, "check username", `select count(*) from users where username = ?`, username)
	return n > 0, err
}

// RegisterUserAtomic inserts the user and links it to role in a single
// transaction, either both rows exist afterwards or none does.
func (s *Store) RegisterUserAtomic(ctx context.Context, username, passwordHash, role string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var id int64
	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		roleID, err := s.roleID(ctx, tx, role)
		if err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx, s.rebind(`insert into users(username, password) values (?, ?) returning id`),
			username, passwordHash).Scan(&id)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(`insert into user_roles(user_id, role_id) values (?, ?)`), id, roleID)
		return err
	})
	if err != nil {
		var unknown UnknownRole
		if errors.As(err, &unknown) {
			return 0, err
		}
		return 0, s.fail(ctx, err, "register user %v", username)
	}
	return id, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]UserRole, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `select u.id, u.username, coalesce(r.role_name, '')
	from users u
	left join user_roles ur on ur.user_id = u.id
	left join roles r on r.id = ur.role_id
	order by u.id`)
	if err != nil {
		return nil, s.fail(ctx, err, "list users")
	}
	defer rows.Close()
	out := []UserRole{}
	for rows.Next() {
		var u UserRole
		err = rows.Scan(&u.ID, &u.Username, &u.Role)
		if err != nil {
			return nil, s.fail(ctx, err, "scan user")
		}
		out = append(out, u)
	}
	if err = rows.Err(); err != nil {
		return nil, s.fail(ctx, err, "list users")
	}
	return out, nil
}

// UpdateUser renames the user and replaces its role link.
func (s *Store) UpdateUser(ctx context.Context, id int64, username, role string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err := s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		roleID, err := s.roleID(ctx, tx, role)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.rebind(`update users set username = ? where id = ?`), username, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx, s.rebind(`delete from user_roles where user_id = ?`), id)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(`insert into user_roles(user_id, role_id) values (?, ?)`), id, roleID)
		return err
	})
	if err != nil {
		var unknown UnknownRole
		if errors.As(err, &unknown) || errors.Is(err, ErrNotFound) {
			return err
		}
		return s.fail(ctx, err, "update user %v", id)
	}
	return nil
}

// CountUsersWithRole counts the users linked to the given role name.
func (s *Store) CountUsersWithRole(ctx context.Context, role string) (int64, error) {
	return s.count(ctx, "count users", `select count(*)
	from user_roles ur
	inner join roles r on r.id = ur.role_id
	where r.role_name = ?`, role)
}

func (s *Store) CountRoles(ctx context.Context) (int64, error) {
	return s.count(ctx, "count roles", `select count(*) from roles`)
}

func (s *Store) roleID(ctx context.Context, tx dbtx, role string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, s.rebind(`select id from roles where role_name = ?`), role).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, UnknownRole{Name: role}
	}
	return id, err
}

func (s *Store) count(ctx context.Context, what string, query string, args ...interface{}) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var n int64
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&n)
	if err != nil {
		return 0, s.fail(ctx, err, "%v", what)
	}
	return n, nil
}
