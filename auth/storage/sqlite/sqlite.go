package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/goserg/accountserver/auth/gen/model"
	"github.com/goserg/accountserver/auth/gen/table"
	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/users"
	"github.com/goserg/accountserver/internal/migrate"
)

const (
	driverName = "sqlite3_accounts"
	// lowerFunc folds case with Unicode rules. The built-in LOWER folds ASCII only.
	lowerFunc = "ulower"
)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(lowerFunc, strings.ToLower, true)
		},
	})
}

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
	now func() time.Time
}

var _ storage.UserStorage = (*Storage)(nil)

func New(l *logrus.Logger, file string) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "sqlite-storage",
	})
	db, err := sql.Open(driverName, buildSource(file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	err = migrate.UpSqlite(db)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}

	err = db.Ping()
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	log.WithField("file", file).Info("user storage connected")
	return &Storage{
		db:  db,
		log: log,
		now: time.Now,
	}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

var userColumns = table.Users.AllColumns.Except(
	table.Users.PasswordHash,
	table.Users.PasswordSalt,
)

func (s *Storage) CreateUser(ctx context.Context, user users.User, secret users.Secret) (users.User, error) {
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	row := toRow(user, secret)
	_, err := table.Users.INSERT(table.Users.AllColumns).MODEL(row).ExecContext(ctx, s.db)
	if err != nil {
		if isEmailConflict(err) {
			return users.User{}, storage.ErrConflict
		}
		return users.User{}, err
	}
	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	return s.getUser(ctx, s.db, table.Users.ID.EQ(sqlite.String(id.String())))
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (users.User, error) {
	return s.getUser(ctx, s.db, table.Users.Email.EQ(sqlite.String(email)))
}

func (s *Storage) GetUserByConfirmationToken(ctx context.Context, token string) (users.User, error) {
	if token == "" {
		return users.User{}, storage.ErrNotFound
	}
	return s.getUser(ctx, s.db, table.Users.ConfirmationToken.EQ(sqlite.String(token)))
}

func (s *Storage) GetUserByRecoverToken(ctx context.Context, token string) (users.User, error) {
	if token == "" {
		return users.User{}, storage.ErrNotFound
	}
	return s.getUser(ctx, s.db, table.Users.RecoverToken.EQ(sqlite.String(token)))
}

func (s *Storage) getUser(ctx context.Context, db qrm.Queryable, where sqlite.BoolExpression) (users.User, error) {
	var dest model.Users
	err := sqlite.
		SELECT(userColumns).
		FROM(table.Users).
		WHERE(where).
		QueryContext(ctx, db, &dest)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.User{}, storage.ErrNotFound
		}
		return users.User{}, err
	}
	return fromRow(dest)
}

func (s *Storage) GetUserSecret(ctx context.Context, id uuid.UUID) (users.Secret, error) {
	var dest model.Users
	err := sqlite.
		SELECT(
			table.Users.PasswordHash,
			table.Users.PasswordSalt,
		).
		FROM(table.Users).
		WHERE(table.Users.ID.EQ(sqlite.String(id.String()))).
		QueryContext(ctx, s.db, &dest)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.Secret{}, storage.ErrNotFound
		}
		return users.Secret{}, err
	}
	return secretFromRow(dest)
}

func (s *Storage) FindUsers(ctx context.Context, filter storage.Filter) (users.Page, error) {
	filter = filter.Normalize()
	where := buildWhere(filter)

	var rows []model.Users
	err := sqlite.
		SELECT(userColumns).
		FROM(table.Users).
		WHERE(where).
		ORDER_BY(orderBy(filter.Sort)...).
		LIMIT(int64(filter.Limit)).
		OFFSET(int64(filter.Offset())).
		QueryContext(ctx, s.db, &rows)
	if err != nil {
		return users.Page{}, err
	}

	query, args := sqlite.
		SELECT(sqlite.COUNT(sqlite.STAR)).
		FROM(table.Users).
		WHERE(where).
		Sql()
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return users.Page{}, fmt.Errorf("count users: %w", err)
	}

	page := users.Page{
		Users: make([]users.User, 0, len(rows)),
		Total: total,
	}
	for _, row := range rows {
		u, err := fromRow(row)
		if err != nil {
			return users.Page{}, err
		}
		page.Users = append(page.Users, u)
	}
	return page, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, patch storage.Patch) (users.User, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) (users.User, error) {
		var row model.Users
		err := sqlite.
			SELECT(table.Users.AllColumns).
			FROM(table.Users).
			WHERE(table.Users.ID.EQ(sqlite.String(id.String()))).
			QueryContext(ctx, tx, &row)
		if err != nil {
			if errors.Is(err, qrm.ErrNoRows) {
				return users.User{}, storage.ErrNotFound
			}
			return users.User{}, err
		}
		user, err := fromRow(row)
		if err != nil {
			return users.User{}, err
		}
		secret, err := secretFromRow(row)
		if err != nil {
			return users.User{}, err
		}

		user = patch.Apply(user)
		if patch.Secret != nil {
			secret = *patch.Secret
		}
		user.UpdatedAt = s.now().UTC()

		_, err = table.Users.
			UPDATE(table.Users.MutableColumns).
			MODEL(toRow(user, secret)).
			WHERE(table.Users.ID.EQ(sqlite.String(id.String()))).
			ExecContext(ctx, tx)
		if err != nil {
			if isEmailConflict(err) {
				return users.User{}, storage.ErrConflict
			}
			return users.User{}, err
		}
		return user, nil
	})
}

func buildWhere(filter storage.Filter) sqlite.BoolExpression {
	where := table.Users.Status.EQ(sqlite.Bool(*filter.Status))
	if filter.Name != "" {
		where = where.AND(contains(table.Users.Name, filter.Name))
	}
	if filter.Email != "" {
		where = where.AND(contains(table.Users.Email, filter.Email))
	}
	if filter.Role != "" {
		where = where.AND(contains(table.Users.Role, filter.Role))
	}
	return where
}

func contains(column sqlite.ColumnString, term string) sqlite.BoolExpression {
	return sqlite.RawBool(
		fmt.Sprintf(`%s(%s.%s) LIKE #pattern ESCAPE '\'`, lowerFunc, column.TableName(), column.Name()),
		sqlite.RawArgs{"#pattern": storage.ContainsPattern(term)},
	)
}

func orderBy(sort []storage.SortField) []sqlite.OrderByClause {
	clauses := make([]sqlite.OrderByClause, 0, len(sort)+1)
	for _, f := range sort {
		column := sortColumn(f.Field)
		if column == nil {
			continue
		}
		if f.Desc {
			clauses = append(clauses, column.DESC())
		} else {
			clauses = append(clauses, column.ASC())
		}
	}
	if len(sort) == 0 {
		clauses = append(clauses, table.Users.CreatedAt.ASC())
	}
	return append(clauses, table.Users.ID.ASC())
}

func sortColumn(field string) sqlite.Column {
	switch field {
	case storage.SortName:
		return table.Users.Name
	case storage.SortEmail:
		return table.Users.Email
	case storage.SortRole:
		return table.Users.Role
	case storage.SortStatus:
		return table.Users.Status
	case storage.SortCreatedAt:
		return table.Users.CreatedAt
	case storage.SortUpdatedAt:
		return table.Users.UpdatedAt
	}
	return nil
}

// isEmailConflict reports a violation of the unique email index. Other
// unique violations (ids, tokens) are plain failures.
func isEmailConflict(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
		strings.Contains(sqliteErr.Error(), table.Users.TableName()+"."+table.Users.Email.Name())
}

func inTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	value, err := fn(tx)
	if err != nil {
		return zero, errors.Join(err, tx.Rollback())
	}
	return value, tx.Commit()
}

func buildSource(fileName string) string {
	return "file:" + fileName + "?cache=shared&_foreign_keys=1"
}
