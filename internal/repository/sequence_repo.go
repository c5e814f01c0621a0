package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Postgres SQLSTATE codes the sequence store reacts to.
const (
	pqLockNotAvailable = "55P03"
	pqQueryCanceled    = "57014"
)

var (
	// ErrLockTimeout is returned when the sequence advisory lock could not be taken in time.
	ErrLockTimeout = errors.New("sequence lock timeout")
	// ErrIdentifierTaken is returned by Reserve when the identifier already exists.
	ErrIdentifierTaken = errors.New("identifier already issued")
)

// SequenceTx is the set of operations available while a sequence lock is held.
type SequenceTx interface {
	// RecentIdentifiers returns identifiers of the sequence matching ^prefix[0-9]+$,
	// newest first. limit <= 0 scans all of them.
	RecentIdentifiers(ctx context.Context, name, prefix string, limit int) ([]string, error)
	Exists(ctx context.Context, identifier string) (bool, error)
	Reserve(ctx context.Context, name, identifier string) error
}

// SequenceRepository stores issued identifiers and serializes allocation per sequence name.
type SequenceRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(db *sqlx.DB, lockTimeout time.Duration) *SequenceRepository {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &SequenceRepository{db: db, lockTimeout: lockTimeout}
}

// WithSequenceLock runs fn inside a transaction holding the advisory lock for name.
// The lock is released on commit or rollback.
func (r *SequenceRepository) WithSequenceLock(ctx context.Context, name string, fn func(tx SequenceTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sequence tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warn().Err(rbErr).Str("sequence", name).Msg("sequence tx rollback failed")
			}
		}
	}()

	// SET does not accept bind parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
		return mapLockError(err)
	}

	if err = fn(&sequenceTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit sequence tx: %w", err)
	}
	return nil
}

func mapLockError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqLockNotAvailable, pqQueryCanceled:
			return fmt.Errorf("%w: %s", ErrLockTimeout, pqErr.Message)
		}
	}
	return fmt.Errorf("acquire sequence lock: %w", err)
}

type sequenceTx struct {
	tx *sqlx.Tx
}

func (s *sequenceTx) RecentIdentifiers(ctx context.Context, name, prefix string, limit int) ([]string, error) {
	q := `SELECT identifier FROM issued_identifiers
        WHERE sequence_name = $1 AND identifier ~ ('^' || $2 || '[0-9]+$')
        ORDER BY issued_at DESC, id DESC`
	args := []interface{}{name, prefix}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}

	var ids []string
	if err := s.tx.SelectContext(ctx, &ids, q, args...); err != nil {
		return nil, fmt.Errorf("scan identifiers: %w", err)
	}
	return ids, nil
}

func (s *sequenceTx) Exists(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := s.tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM issued_identifiers WHERE identifier = $1)`, identifier)
	if err != nil {
		return false, fmt.Errorf("check identifier: %w", err)
	}
	return exists, nil
}

// Reserve uses ON CONFLICT DO NOTHING so a lost race does not abort the transaction.
func (s *sequenceTx) Reserve(ctx context.Context, name, identifier string) error {
	res, err := s.tx.ExecContext(ctx,
		`INSERT INTO issued_identifiers (sequence_name, identifier) VALUES ($1, $2)
        ON CONFLICT (identifier) DO NOTHING`, name, identifier)
	if err != nil {
		return fmt.Errorf("reserve identifier: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIdentifierTaken
	}
	return nil
}
