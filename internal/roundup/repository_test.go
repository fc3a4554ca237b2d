package roundup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDatabase implements the Database interface for testing
type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	callArgs := m.Called(ctx, query, args)
	return callArgs.Get(0).(pgx.Row)
}

func (m *MockDatabase) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	callArgs := m.Called(ctx, query, args)
	return callArgs.Get(0).(pgconn.CommandTag), callArgs.Error(1)
}

// mockRow implements pgx.Row
type mockRow struct {
	values []any
	err    error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case *string:
			*d = v.(string)
		case *Status:
			*d = Status(v.(string))
		case *int64:
			*d = v.(int64)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("unsupported scan destination")
		}
	}
	return nil
}

func TestRepository_Find(t *testing.T) {
	db := new(MockDatabase)
	repo := NewRepository(db)
	reqID := uuid.New()
	created := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{testAccount, testWeek}).
		Return(&mockRow{values: []any{reqID, testAccount, testWeek, "COMPLETED", int64(51), created, created}})

	req, err := repo.Find(context.Background(), testAccount, testWeek)

	require.NoError(t, err)
	assert.Equal(t, reqID, req.RequestID)
	assert.Equal(t, StatusCompleted, req.Status)
	assert.Equal(t, int64(51), req.RoundUpAmount)
	assert.Equal(t, testWeek, req.WeekCommencing)
	db.AssertExpectations(t)
}

func TestRepository_Find_NotFound(t *testing.T) {
	db := new(MockDatabase)
	repo := NewRepository(db)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{err: pgx.ErrNoRows})

	_, err := repo.Find(context.Background(), testAccount, testWeek)

	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRepository_Find_DatabaseError(t *testing.T) {
	db := new(MockDatabase)
	repo := NewRepository(db)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{err: errors.New("conn closed")})

	_, err := repo.Find(context.Background(), testAccount, testWeek)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRequestNotFound)
	assert.Contains(t, err.Error(), "conn closed")
}

func TestRepository_Save(t *testing.T) {
	db := new(MockDatabase)
	repo := NewRepository(db)
	now := time.Now().UTC()
	req := &Request{
		RequestID:      uuid.New(),
		AccountID:      testAccount,
		WeekCommencing: testWeek,
		Status:         StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	db.On("Exec", mock.Anything, mock.MatchedBy(func(q string) bool {
		return containsAll(q, "INSERT INTO round_up_requests", "ON CONFLICT (account_id, week_commencing)")
	}), []any{req.RequestID, testAccount, testWeek, "IN_PROGRESS", int64(0), now, now}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.Save(context.Background(), req))
	db.AssertExpectations(t)
}

func TestRepository_Save_OnlyOverwritesFailed(t *testing.T) {
	db := new(MockDatabase)
	repo := NewRepository(db)
	now := time.Now().UTC()
	req := &Request{
		RequestID:      uuid.New(),
		AccountID:      testAccount,
		WeekCommencing: testWeek,
		Status:         StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var query string
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { query = args.String(1) }).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	err := repo.Save(context.Background(), req)

	assert.ErrorIs(t, err, ErrRequestExists)
	assert.Contains(t, query, "WHERE round_up_requests.status = 'FAILED'")
	assert.NotContains(t, query, "request_id = EXCLUDED.request_id")
	db.AssertExpectations(t)
}

func TestRepository_Save_Error(t *testing.T) {
	db := new(MockDatabase)
	repo := NewRepository(db)
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("unique violation"))

	err := repo.Save(context.Background(), &Request{})
	assert.Error(t, err)
}

func TestRepository_UpdateStatusAndAmount(t *testing.T) {
	tests := []struct {
		name    string
		tag     pgconn.CommandTag
		execErr error
		wantErr error
	}{
		{"updated", pgconn.NewCommandTag("UPDATE 1"), nil, nil},
		{"no row", pgconn.NewCommandTag("UPDATE 0"), nil, ErrRequestNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(MockDatabase)
			repo := NewRepository(db)
			db.On("Exec", mock.Anything, mock.AnythingOfType("string"),
				[]any{testAccount, testWeek, "COMPLETED", int64(51)}).Return(tt.tag, tt.execErr)

			err := repo.UpdateStatusAndAmount(context.Background(), testAccount, testWeek, StatusCompleted, 51)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			db.AssertExpectations(t)
		})
	}
}

func TestRepository_UpdateStatusAndAmount_ExecError(t *testing.T) {
	db := new(MockDatabase)
	repo := NewRepository(db)
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, errors.New("timeout"))

	err := repo.UpdateStatusAndAmount(context.Background(), testAccount, testWeek, StatusFailed, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRequestNotFound)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
