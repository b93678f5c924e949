package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Postgres stores boards and snapshots in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL, verifies the connection and applies
// the schema.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) CreateBoard(ctx context.Context, b Board) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO boards (id, name, passcode_hash, width, height) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.Name, b.PasscodeHash, b.Width, b.Height,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create board %s: %w", b.ID, ErrDuplicate)
		}
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

const boardColumns = `id, name, passcode_hash, width, height, created_at, updated_at`

func scanBoard(row pgx.Row) (Board, error) {
	var b Board
	err := row.Scan(&b.ID, &b.Name, &b.PasscodeHash, &b.Width, &b.Height, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (p *Postgres) GetBoard(ctx context.Context, id string) (Board, error) {
	b, err := scanBoard(p.pool.QueryRow(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Board{}, fmt.Errorf("get board %s: %w", id, ErrNotFound)
		}
		return Board{}, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

func (p *Postgres) ListBoards(ctx context.Context) ([]Board, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+boardColumns+` FROM boards ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	boards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Board, error) {
		return scanBoard(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (p *Postgres) DeleteBoard(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete board %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateSnapshot assigns the next version inside a transaction so
// concurrent saves of one board cannot collide.
func (p *Postgres) CreateSnapshot(ctx context.Context, s Snapshot) (int, error) {
	var version int
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT true FROM boards WHERE id = $1 FOR UPDATE`, s.BoardID,
		).Scan(&exists); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE board_id = $1`, s.BoardID,
		).Scan(&version); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO snapshots (id, board_id, version, document) VALUES ($1, $2, $3, $4)`,
			s.ID, s.BoardID, version, []byte(s.Document),
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE boards SET updated_at = now() WHERE id = $1`, s.BoardID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("create snapshot for %s: %w", s.BoardID, ErrNotFound)
		}
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	return version, nil
}

func (p *Postgres) LatestSnapshot(ctx context.Context, boardID string) (Snapshot, error) {
	var s Snapshot
	err := p.pool.QueryRow(ctx,
		`SELECT id, board_id, version, document, created_at FROM snapshots
		 WHERE board_id = $1 ORDER BY version DESC LIMIT 1`, boardID,
	).Scan(&s.ID, &s.BoardID, &s.Version, &s.Document, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("latest snapshot for %s: %w", boardID, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return s, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
