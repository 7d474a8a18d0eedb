package directory

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/andrebq/userauth/internal/memcache"
	"github.com/andrebq/userauth/internal/sqlitedb"
)

type (
	Directory struct {
		db      *sql.DB
		tickets *bigcache.BigCache
	}

	Account struct {
		ID          int64
		Login       string
		DisplayName string
		CreatedAt   time.Time
		LastLoginAt time.Time
	}
)

const (
	TicketLifetime = 10 * time.Minute
)

var (
	reValidLogin = regexp.MustCompile(`^[a-z0-9_.\-]{1,64}$`)
)

// Open loads the directory stored under dir, creating it if needed.
func Open(ctx context.Context, dir string) (*Directory, error) {
	db, err := sqlitedb.Open(ctx, dir, "directory.db", true)
	if err != nil {
		return nil, err
	}
	err = sqlitedb.Migrate(ctx, db,
		`create table if not exists users(
			user_id integer primary key autoincrement,
			login text not null unique,
			login_hash64 integer not null,
			display_name text not null,
			created_at integer not null,
			last_login_at integer not null default 0
		)`,
		`create index if not exists idx_users_login_hash64
			on users(login_hash64)`,
		`create table if not exists logouts(
			login text not null,
			at integer not null
		)`,
	)
	if err != nil {
		db.Close()
		return nil, err
	}
	tickets, err := memcache.New(TicketLifetime)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create ticket store, cause %w", err)
	}
	return &Directory{db: db, tickets: tickets}, nil
}

func (d *Directory) Register(ctx context.Context, login, displayName string) (Account, error) {
	if !reValidLogin.MatchString(login) {
		return Account{}, InvalidLogin{Login: login}
	}
	if displayName == "" {
		displayName = login
	}
	now := time.Now().Unix()
	_, err := d.db.ExecContext(ctx, `insert into users(login, login_hash64, display_name, created_at) values (?, ?, ?, ?)`,
		login, sqlitedb.Hash64(login), displayName, now)
	if err != nil {
		return Account{}, fmt.Errorf("unable to register %v, cause %w", login, err)
	}
	return d.Lookup(ctx, login)
}

func (d *Directory) Lookup(ctx context.Context, login string) (Account, error) {
	var acc Account
	var created, lastLogin int64
	err := d.db.QueryRowContext(ctx, `select user_id, login, display_name, created_at, last_login_at
		from users where login_hash64 = ? and login = ?`, sqlitedb.Hash64(login), login).
		Scan(&acc.ID, &acc.Login, &acc.DisplayName, &created, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, UnknownLogin{Login: login}
	} else if err != nil {
		return Account{}, fmt.Errorf("unable to lookup %v, cause %w", login, err)
	}
	acc.CreatedAt = time.Unix(created, 0)
	if lastLogin > 0 {
		acc.LastLoginAt = time.Unix(lastLogin, 0)
	}
	return acc, nil
}

func (d *Directory) List(ctx context.Context) ([]Account, error) {
	rows, err := d.db.QueryContext(ctx, `select user_id, login, display_name, created_at, last_login_at from users order by login asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list users, cause %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var acc Account
		var created, lastLogin int64
		err = rows.Scan(&acc.ID, &acc.Login, &acc.DisplayName, &created, &lastLogin)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user, cause %w", err)
		}
		acc.CreatedAt = time.Unix(created, 0)
		if lastLogin > 0 {
			acc.LastLoginAt = time.Unix(lastLogin, 0)
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// IssueTicket returns a one-time ticket that GetUser exchanges for the
// account behind login.
func (d *Directory) IssueTicket(ctx context.Context, login string) (string, error) {
	if _, err := d.Lookup(ctx, login); err != nil {
		return "", err
	}
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	ticket := base64.RawURLEncoding.EncodeToString(buf[:])
	if err := d.tickets.Set(ticket, []byte(login)); err != nil {
		return "", fmt.Errorf("unable to save ticket, cause %w", err)
	}
	return ticket, nil
}

func (d *Directory) redeem(ticket string) (string, bool, error) {
	buf, err := d.tickets.Get(ticket)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	err = d.tickets.Delete(ticket)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return "", false, err
	}
	return string(buf), true, nil
}

func (d *Directory) touch(ctx context.Context, login string, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `update users set last_login_at = ? where login_hash64 = ? and login = ?`,
		at.Unix(), sqlitedb.Hash64(login), login)
	if err != nil {
		return fmt.Errorf("unable to update last login of %v, cause %w", login, err)
	}
	return nil
}

func (d *Directory) recordLogout(ctx context.Context, login string, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `insert into logouts(login, at) values (?, ?)`, login, at.Unix())
	if err != nil {
		return fmt.Errorf("unable to record logout of %v, cause %w", login, err)
	}
	return nil
}

// Logouts counts the logouts recorded for login.
func (d *Directory) Logouts(ctx context.Context, login string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `select count(*) from logouts where login = ?`, login).Scan(&n)
	return n, err
}

func (d *Directory) Close() error {
	d.tickets.Close()
	return d.db.Close()
}
