package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type (
	Memo struct {
		ID     int64  `json:"Id"`
		UserID int64  `json:"UserId"`
		Date   string `json:"Date"`
		Memo   string `json:"Memo"`
	}

	// calendarDate scans both the text dates kept by sqlite and the
	// time.Time values returned for postgres `date` columns.
	calendarDate string
)

const (
	DateLayout = "2006-01-02"
)

func (c *calendarDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*c = calendarDate(v.Format(DateLayout))
	case string:
		*c = calendarDate(v)
	case []byte:
		*c = calendarDate(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a calendar date", src)
	}
	return nil
}

const memoColumns = `id, user_id, memo_date, memo`

// ListMemos returns every memo owned by userID, newest date first.
func (s *Store) ListMemos(ctx context.Context, userID int64) ([]Memo, error) {
	return s.queryMemos(ctx, "list memos", `select `+memoColumns+`
	from memos where user_id = ?
	order by memo_date desc, id desc`, userID)
}

// MemosOn returns the memos owned by userID for a single calendar date.
func (s *Store) MemosOn(ctx context.Context, userID int64, date string) ([]Memo, error) {
	return s.queryMemos(ctx, "list memos by date", `select `+memoColumns+`
	from memos where user_id = ? and memo_date = ?
	order by id`, userID, date)
}

func (s *Store) Memo(ctx context.Context, id int64) (Memo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	m, err := scanMemo(s.db.QueryRowContext(ctx, s.rebind(`select `+memoColumns+` from memos where id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Memo{}, ErrNotFound
	} else if err != nil {
		return Memo{}, s.fail(ctx, err, "load memo %v", id)
	}
	return m, nil
}

func (s *Store) AddMemo(ctx context.Context, m Memo) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`insert into memos(user_id, memo_date, memo) values (?, ?, ?) returning id`),
		m.UserID, m.Date, m.Memo).Scan(&id)
	if err != nil {
		return 0, s.fail(ctx, err, "add memo")
	}
	return id, nil
}

func (s *Store) UpdateMemo(ctx context.Context, id int64, date, text string) error {
	return s.execOne(ctx, "update memo", `update memos set memo_date = ?, memo = ? where id = ?`, date, text, id)
}

func (s *Store) DeleteMemo(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete memo", `delete from memos where id = ?`, id)
}

func (s *Store) queryMemos(ctx context.Context, what string, query string, args ...interface{}) ([]Memo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, s.fail(ctx, err, "%v", what)
	}
	defer rows.Close()
	out := []Memo{}
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, s.fail(ctx, err, "%v", what)
		}
		out = append(out, m)
	}
	if err = rows.Err(); err != nil {
		return nil, s.fail(ctx, err, "%v", what)
	}
	return out, nil
}

func scanMemo(row interface{ Scan(...interface{}) error }) (Memo, error) {
	var m Memo
	var date calendarDate
	err := row.Scan(&m.ID, &m.UserID, &date, &m.Memo)
	m.Date = string(date)
	return m, err
}
