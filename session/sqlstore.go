package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andrebq/userauth/internal/sqlitedb"
)

type (
	// SQLStore keeps sessions in a sqlite database so they survive
	// restarts.
	SQLStore struct {
		db *sql.DB
	}
)

func OpenSQLStore(ctx context.Context, dir string) (*SQLStore, error) {
	db, err := sqlitedb.Open(ctx, dir, "sessions.db", true)
	if err != nil {
		return nil, err
	}
	err = sqlitedb.Migrate(ctx, db,
		`create table if not exists sessions(
			session_id text not null primary key,
			id_hash64 integer not null,
			data text not null,
			updated_at integer not null
		)`,
		`create index if not exists idx_sessions_id_hash64
			on sessions(id_hash64)`,
	)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load(ctx context.Context, id string) (map[string]interface{}, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `select data from sessions where id_hash64 = ? and session_id = ?`,
		sqlitedb.Hash64(id), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("unable to load session, cause %w", err)
	}
	return decode(id, []byte(data))
}

func (s *SQLStore) Save(ctx context.Context, id string, data map[string]interface{}) error {
	buf, err := encode(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `insert into sessions(session_id, id_hash64, data, updated_at) values (?, ?, ?, ?)
		on conflict (session_id) do update set data = excluded.data, updated_at = excluded.updated_at`,
		id, sqlitedb.Hash64(id), string(buf), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("unable to save session, cause %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id_hash64 = ? and session_id = ?`, sqlitedb.Hash64(id), id)
	if err != nil {
		return fmt.Errorf("unable to delete session, cause %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
