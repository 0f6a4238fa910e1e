package store

import (
	"context"
	"database/sql"
)

type (
	Client struct {
		ID             int64  `json:"Id"`
		CompanyName    string `json:"CompanyName"`
		CompanyAddress string `json:"CompanyAddress"`
		ContactPerson  string `json:"ContactPerson"`
		ContactNumber  string `json:"ContactNumber"`
		Email          string `json:"Email"`
	}
)

func (s *Store) ListClients(ctx context.Context) ([]Client, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `select id, company_name, company_address, contact_person, contact_number, email
	from clients order by id`)
	if err != nil {
		return nil, s.fail(ctx, err, "list clients")
	}
	defer rows.Close()
	out := []Client{}
	for rows.Next() {
		var c Client
		var email sql.NullString
		err = rows.Scan(&c.ID, &c.CompanyName, &c.CompanyAddress, &c.ContactPerson, &c.ContactNumber, &email)
		if err != nil {
			return nil, s.fail(ctx, err, "scan client")
		}
		c.Email = email.String
		out = append(out, c)
	}
	if err = rows.Err(); err != nil {
		return nil, s.fail(ctx, err, "list clients")
	}
	return out, nil
}

// AddClient stores c (its ID is ignored) and returns the new id.
// An empty Email is stored as null.
func (s *Store) AddClient(ctx context.Context, c Client) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`insert into clients(company_name, company_address, contact_person, contact_number, email)
	values (?, ?, ?, ?, ?) returning id`),
		c.CompanyName, c.CompanyAddress, c.ContactPerson, c.ContactNumber, nullable(c.Email)).Scan(&id)
	if err != nil {
		return 0, s.fail(ctx, err, "add client %v", c.CompanyName)
	}
	return id, nil
}

func (s *Store) UpdateClient(ctx context.Context, c Client) error {
	return s.execOne(ctx, "update client", `update clients
	set company_name = ?, company_address = ?, contact_person = ?, contact_number = ?, email = ?
	where id = ?`,
		c.CompanyName, c.CompanyAddress, c.ContactPerson, c.ContactNumber, nullable(c.Email), c.ID)
}

func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete client", `delete from clients where id = ?`, id)
}

// execOne runs a statement that must touch exactly one row, zero rows is
// reported as ErrNotFound.
func (s *Store) execOne(ctx context.Context, what string, query string, args ...interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return s.fail(ctx, err, "%v", what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail(ctx, err, "%v", what)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
