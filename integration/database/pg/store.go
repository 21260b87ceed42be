package pg

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authgate/core/session"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// Store is a Postgres implementation of session.Store backed by a pgx
// connection pool. The hashed token column carries a unique index, so token
// resolution cost is independent of the table size.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Postgres session store. The schema must be migrated first;
// see Migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create persists a new session.
func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (
			id, hashed_token, principal_kind, principal_id,
			original_principal_kind, original_principal_id, shapeshifted_at,
			expires_at, last_seen_at, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sess.ID, sess.HashedToken, sess.Principal.Kind, sess.Principal.ID,
		originalKind(sess), originalID(sess), sess.ShapeshiftedAt,
		sess.ExpiresAt, sess.LastSeenAt, sess.IPAddress, sess.UserAgent, sess.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return session.ErrDuplicateToken
		}
		return err
	}
	return nil
}

// FindByHashedToken resolves a session by its token digest.
func (s *Store) FindByHashedToken(ctx context.Context, hashedToken string) (*session.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, hashed_token, principal_kind, principal_id,
			original_principal_kind, original_principal_id, shapeshifted_at,
			expires_at, last_seen_at, ip_address, user_agent, created_at
		FROM sessions
		WHERE hashed_token = $1`,
		hashedToken,
	)
	return scanSession(row)
}

// Update overwrites the session's mutable fields. Updating a deleted
// session affects zero rows and is not an error; last writer wins.
func (s *Store) Update(ctx context.Context, sess *session.Session) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET
			principal_kind = $2, principal_id = $3,
			original_principal_kind = $4, original_principal_id = $5,
			shapeshifted_at = $6, last_seen_at = $7,
			ip_address = $8, user_agent = $9
		WHERE id = $1`,
		sess.ID, sess.Principal.Kind, sess.Principal.ID,
		originalKind(sess), originalID(sess),
		sess.ShapeshiftedAt, sess.LastSeenAt,
		sess.IPAddress, sess.UserAgent,
	)
	return err
}

// Delete removes a session by ID, no-op when already gone.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteStale removes expired and, when lastSeenBefore is set, inactive
// sessions, optionally scoped to one principal.
func (s *Store) DeleteStale(ctx context.Context, expiredBefore, lastSeenBefore time.Time, scope *session.PrincipalRef) (int64, error) {
	query := `DELETE FROM sessions WHERE (expires_at < $1`
	args := []any{expiredBefore}

	if !lastSeenBefore.IsZero() {
		query += ` OR last_seen_at < $2`
		args = append(args, lastSeenBefore)
	}
	query += `)`

	if scope != nil {
		query += ` AND principal_kind = $` + strconv.Itoa(len(args)+1) +
			` AND principal_id = $` + strconv.Itoa(len(args)+2)
		args = append(args, scope.Kind, scope.ID)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteForPrincipal removes every session belonging to the principal.
func (s *Store) DeleteForPrincipal(ctx context.Context, ref session.PrincipalRef) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM sessions WHERE principal_kind = $1 AND principal_id = $2`,
		ref.Kind, ref.ID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		sess         session.Session
		origKind     *string
		origID       *string
		shapeshifted *time.Time
	)

	err := row.Scan(
		&sess.ID, &sess.HashedToken, &sess.Principal.Kind, &sess.Principal.ID,
		&origKind, &origID, &shapeshifted,
		&sess.ExpiresAt, &sess.LastSeenAt, &sess.IPAddress, &sess.UserAgent, &sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	if origKind != nil && origID != nil {
		sess.OriginalPrincipal = &session.PrincipalRef{Kind: *origKind, ID: *origID}
	}
	sess.ShapeshiftedAt = shapeshifted

	return &sess, nil
}

func originalKind(sess *session.Session) *string {
	if sess.OriginalPrincipal == nil {
		return nil
	}
	return &sess.OriginalPrincipal.Kind
}

func originalID(sess *session.Session) *string {
	if sess.OriginalPrincipal == nil {
		return nil
	}
	return &sess.OriginalPrincipal.ID
}
