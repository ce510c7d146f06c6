package claim

import (
	"context"
	"database/sql"
	_ "embed"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"

	pkgdb "github.com/ahwlsqja/coinflip-claim-engine/pkg/db"
)

const (
	mysqlErrDuplicateEntry = 1062

	defaultListLimit  = 20
	maxErrorReasonLen = 512
)

//go:embed schema.sql
var schemaSQL string

// Repository errors
var (
	ErrAttemptNotFound = stderrors.New("claim attempt not found")
	ErrDuplicateTxHash = stderrors.New("transaction hash already recorded")
)

// Attempt is one audited run of the claim pipeline
type Attempt struct {
	ID          uint64
	ExternalID  string
	ChainID     int64
	UserAddress string
	Nonce       uint64
	FlipCount   uint64
	Method      string
	State       State
	TxHash      sql.NullString
	ErrorCode   sql.NullString
	ErrorReason sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransitionUpdate carries the columns written alongside a state change.
// Empty values leave the stored column untouched.
type TransitionUpdate struct {
	TxHash      string
	ErrorCode   string
	ErrorReason string
}

// AttemptStore persists claim attempts
type AttemptStore interface {
	Create(ctx context.Context, attempt *Attempt) error
	Transition(ctx context.Context, externalID string, next State, update TransitionUpdate) error
	ListByUser(ctx context.Context, userAddress string, chainID int64, limit int) ([]Attempt, error)
}

// Repository stores claim attempts in MySQL
type Repository struct {
	txRunner *pkgdb.TxRunner
}

var _ AttemptStore = (*Repository)(nil)

// NewRepository creates a new claim attempt repository
func NewRepository(txRunner *pkgdb.TxRunner) *Repository {
	return &Repository{txRunner: txRunner}
}

// Migrate creates the claim_attempts table if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.txRunner.DB().ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate claim_attempts: %w", err)
	}
	return nil
}

// Create inserts a new attempt. Addresses are stored lower-case.
func (r *Repository) Create(ctx context.Context, attempt *Attempt) error {
	attempt.UserAddress = strings.ToLower(attempt.UserAddress)

	result, err := r.txRunner.DB().ExecContext(ctx,
		`INSERT INTO claim_attempts (external_id, chain_id, user_address, nonce, flip_count, method, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.ExternalID, attempt.ChainID, attempt.UserAddress, attempt.Nonce,
		attempt.FlipCount, attempt.Method, string(attempt.State),
	)
	if err != nil {
		return fmt.Errorf("insert claim attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert claim attempt: %w", err)
	}
	attempt.ID = uint64(id)
	return nil
}

// Transition moves an attempt to next under a row lock. Transitions the
// state machine does not allow return ErrIllegalTransition.
func (r *Repository) Transition(ctx context.Context, externalID string, next State, update TransitionUpdate) error {
	return r.txRunner.WithTx(ctx, func(tx pkgdb.DBTX) error {
		var current State
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM claim_attempts WHERE external_id = ? FOR UPDATE`, externalID,
		).Scan(&current)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrAttemptNotFound, externalID)
			}
			return fmt.Errorf("lock claim attempt: %w", err)
		}

		if err := checkTransition(current, next); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE claim_attempts
			 SET state = ?,
			     tx_hash = COALESCE(?, tx_hash),
			     error_code = COALESCE(?, error_code),
			     error_reason = COALESCE(?, error_reason)
			 WHERE external_id = ?`,
			string(next),
			nullString(update.TxHash),
			nullString(update.ErrorCode),
			nullString(truncate(update.ErrorReason, maxErrorReasonLen)),
			externalID,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateTxHash, update.TxHash)
			}
			return fmt.Errorf("update claim attempt: %w", err)
		}
		return nil
	})
}

// ListByUser returns the newest attempts of a user. chainID 0 matches every chain.
func (r *Repository) ListByUser(ctx context.Context, userAddress string, chainID int64, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, external_id, chain_id, user_address, nonce, flip_count, method, state,
		tx_hash, error_code, error_reason, created_at, updated_at
		FROM claim_attempts WHERE user_address = ?`
	args := []interface{}{strings.ToLower(userAddress)}
	if chainID != 0 {
		query += ` AND chain_id = ?`
		args = append(args, chainID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.txRunner.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claim attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(
			&a.ID, &a.ExternalID, &a.ChainID, &a.UserAddress, &a.Nonce, &a.FlipCount,
			&a.Method, &a.State, &a.TxHash, &a.ErrorCode, &a.ErrorReason,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claim attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list claim attempts: %w", err)
	}
	return attempts, nil
}

// isDuplicateKeyError checks if the error is a MySQL duplicate key error
func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
