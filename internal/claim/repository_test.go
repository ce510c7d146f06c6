package claim

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/ahwlsqja/coinflip-claim-engine/pkg/db"
)

const lockQuery = `SELECT state FROM claim_attempts WHERE external_id = \? FOR UPDATE`

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewRepository(pkgdb.NewTxRunner(database)), mock
}

func TestRepository_Migrate(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS claim_attempts").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec("INSERT INTO claim_attempts").
		WithArgs("attempt-1", int64(84532), "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			int64(3), int64(12), "ecdsa", "SIGNATURE_VERIFIED").
		WillReturnResult(sqlmock.NewResult(42, 1))

	attempt := &Attempt{
		ExternalID:  "attempt-1",
		ChainID:     84532,
		UserAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Nonce:       3,
		FlipCount:   12,
		Method:      "ecdsa",
		State:       StateSignatureVerified,
	}
	require.NoError(t, repo.Create(context.Background(), attempt))
	assert.Equal(t, uint64(42), attempt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Transition(t *testing.T) {
	repo, mock := newMockRepository(t)
	txHash := "0x9f0c2a1b7e4d3c5a6b8f0e1d2c3b4a5968778695a4b3c2d1e0f9e8d7c6b5a4f3"

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("attempt-1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("SIGNATURE_VERIFIED"))
	mock.ExpectExec("UPDATE claim_attempts").
		WithArgs("TX_SUBMITTED", txHash, nil, nil, "attempt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), "attempt-1", StateTxSubmitted, TransitionUpdate{TxHash: txHash})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_TransitionRefusesIllegalMove(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("attempt-1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("TX_CONFIRMED"))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), "attempt-1", StateTxReverted, TransitionUpdate{})
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_TransitionNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"state"}))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), "missing", StateTxSubmitted, TransitionUpdate{})
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_TransitionDuplicateTxHash(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("attempt-2").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("SIGNATURE_VERIFIED"))
	mock.ExpectExec("UPDATE claim_attempts").
		WillReturnError(&mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), "attempt-2", StateTxSubmitted, TransitionUpdate{TxHash: "0xabc"})
	assert.ErrorIs(t, err, ErrDuplicateTxHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	columns := []string{"id", "external_id", "chain_id", "user_address", "nonce", "flip_count", "method",
		"state", "tx_hash", "error_code", "error_reason", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT id, external_id").
		WithArgs("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", int64(84532), int64(20)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "attempt-2", 84532, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", 4, 9, "ecdsa",
				"TX_REVERTED", nil, "DAILY_LIMIT_REACHED", "Daily limit reached for this wallet", now, now).
			AddRow(1, "attempt-1", 84532, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", 3, 12, "erc1271",
				"TX_CONFIRMED", "0xabc", nil, nil, now, now))

	attempts, err := repo.ListByUser(context.Background(), "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", 84532, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	assert.Equal(t, StateTxReverted, attempts[0].State)
	assert.False(t, attempts[0].TxHash.Valid)
	assert.Equal(t, "DAILY_LIMIT_REACHED", attempts[0].ErrorCode.String)

	resp := ToListClaimsResponse(attempts)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, "0xabc", resp.Claims[1].TxHash)
	assert.Equal(t, "erc1271", resp.Claims[1].Method)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByUserAllChains(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery("SELECT id, external_id").
		WithArgs("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	attempts, err := repo.ListByUser(context.Background(), "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", 0, 5)
	require.NoError(t, err)
	assert.Empty(t, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	// "é" is two bytes; cutting at 2 would leave half of it
	assert.Equal(t, "a", truncate("aé", 2))

	long := strings.Repeat("a", maxErrorReasonLen-1) + "🪙"
	cut := truncate(long, maxErrorReasonLen)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("a", maxErrorReasonLen-1), cut)
}
