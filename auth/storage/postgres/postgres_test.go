package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/users"
)

func newStorageWithMock(t *testing.T) (*Storage, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return newStorage(db, l), mock, db
}

var secretColumns = []string{"users.password_hash", "users.password_salt"}

func TestCreateUser_Conflict(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO public\.users`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_uindex"})

	_, err := s.CreateUser(context.Background(), users.User{ID: uuid.New(), Email: "a@b.c"}, users.Secret{})
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_TokenCollisionIsNotConflict(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO public\.users`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_recover_token_uindex"})

	_, err := s.CreateUser(context.Background(), users.User{ID: uuid.New(), Email: "a@b.c"}, users.Secret{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Success(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	mock.ExpectExec(`(?s)INSERT INTO public\.users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, err := s.CreateUser(context.Background(), users.User{ID: uuid.New(), Email: "a@b.c"}, users.Secret{})
	require.NoError(t, err)
	assert.Equal(t, fixed, u.CreatedAt)
	assert.Equal(t, fixed, u.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DBError(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO public\.users`).
		WillReturnError(errors.New("db down"))

	_, err := s.CreateUser(context.Background(), users.User{ID: uuid.New()}, users.Secret{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrConflict)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .*FROM public\.users.*WHERE users\.email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"users.id", "users.email"}))

	_, err := s.GetUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByToken_EmptyTokenSkipsQuery(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	_, err := s.GetUserByConfirmationToken(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetUserByRecoverToken(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserSecret(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .*users\.password_hash.*FROM public\.users`).
		WillReturnRows(sqlmock.NewRows(secretColumns).AddRow("0a0b", "0c0d"))

	secret, err := s.GetUserSecret(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, secret.PasswordHash)
	assert.Equal(t, []byte{0x0c, 0x0d}, secret.Salt)
}

func TestUpdateUser_NotFoundRollsBack(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .*FROM public\.users`).
		WillReturnRows(sqlmock.NewRows([]string{"users.id"}))
	mock.ExpectRollback()

	_, err := s.UpdateUser(context.Background(), uuid.New(), storage.Patch{Name: storage.Ptr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUsers_CountError(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .*FROM public\.users.*LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"users.id"}))
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\)`).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := s.FindUsers(context.Background(), storage.Filter{Name: "ann"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count users")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUsers_Empty(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .*FROM public\.users.*LOWER\(users\.email\) LIKE.*ORDER BY.*LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"users.id"}))
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	page, err := s.FindUsers(context.Background(), storage.Filter{Email: "Corp"})
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.Zero(t, page.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUsers_EscapesLikeWildcards(t *testing.T) {
	s, mock, db := newStorageWithMock(t)
	defer db.Close()

	pattern := `%50\%\_off%`
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .*FROM public\.users.*LOWER\(users\.name\) LIKE \$\d+ ESCAPE '\\'.*LIMIT`).
		WithArgs(true, pattern, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"users.id"}))
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).*ESCAPE`).
		WithArgs(true, pattern).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	_, err := s.FindUsers(context.Background(), storage.Filter{Name: "50%_OFF"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
