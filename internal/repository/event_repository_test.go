package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "total_seats", "created_at"})
}

func TestEventRepo_FindByIDTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db, MySQL)
	q := regexp.QuoteMeta("SELECT id, name, total_seats, created_at FROM events WHERE id = ?")

	mock.ExpectBegin()
	mock.ExpectQuery(q).WithArgs(int64(1)).WillReturnRows(eventRows().AddRow(1, "Jazz night", 100, created))
	mock.ExpectQuery(q).WithArgs(int64(2)).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs(int64(3)).WillReturnError(errors.New("bad connection"))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	ev, found, err := repo.FindByIDTx(ctx, tx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Jazz night", ev.Name)
	assert.Equal(t, 100, ev.TotalSeats)
	assert.Equal(t, created, ev.CreatedAt)

	_, found, err = repo.FindByIDTx(ctx, tx, 2)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = repo.FindByIDTx(ctx, tx, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository.EventRepo.FindByIDTx")
}

func TestEventRepo_LockForUpdateTx_Postgres(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db, Postgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.LockForUpdateTx(ctx, tx, 4))
	require.NoError(t, tx.Commit())
}

func TestEventRepo_Create(t *testing.T) {
	t.Run("mysql", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewEventRepo(db, MySQL)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events (name, total_seats) VALUES (?, ?)")).
			WithArgs("Opera", 50).
			WillReturnResult(sqlmock.NewResult(9, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM events WHERE id = ?")).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

		ev, err := repo.Create(context.Background(), "Opera", 50)
		require.NoError(t, err)
		assert.Equal(t, int64(9), ev.ID)
		assert.Equal(t, created, ev.CreatedAt)
	})

	t.Run("postgres", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewEventRepo(db, Postgres)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO events (name, total_seats) VALUES ($1, $2) RETURNING id, created_at")).
			WithArgs("Opera", 50).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, created))

		ev, err := repo.Create(context.Background(), "Opera", 50)
		require.NoError(t, err)
		assert.Equal(t, int64(11), ev.ID)
		assert.Equal(t, 50, ev.TotalSeats)
	})
}

func TestEventRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db, MySQL)

	mock.ExpectQuery("SELECT id, name, total_seats, created_at FROM events").
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventRepo_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db, MySQL)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events ORDER BY id DESC LIMIT ? OFFSET ?")).
		WithArgs(2, 0).
		WillReturnRows(eventRows().
			AddRow(2, "B", 10, created).
			AddRow(1, "A", 5, created))

	events, err := repo.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
}

func TestEventRepo_List_Empty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db, MySQL)

	mock.ExpectQuery("FROM events ORDER BY").WillReturnRows(eventRows())

	events, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventRepo_AvailableSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db, MySQL)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.total_seats - COUNT(b.id)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.total_seats - COUNT(b.id)")).
		WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)

	n, err := repo.AvailableSeats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = repo.AvailableSeats(context.Background(), 2)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
