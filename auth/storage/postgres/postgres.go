package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // postgresql driver
	"github.com/sirupsen/logrus"

	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/users"
	"github.com/goserg/accountserver/gen/auth/public/model"
	"github.com/goserg/accountserver/gen/auth/public/table"
	"github.com/goserg/accountserver/internal/migrate"
)

const uniqueViolation = "23505"

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
	now func() time.Time
}

var _ storage.UserStorage = (*Storage)(nil)

func New(ctx context.Context, l *logrus.Logger, dsn string) (*Storage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if err := migrate.UpPostgres(ctx, db); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}
	s := newStorage(db, l)
	s.log.Info("user storage connected")
	return s, nil
}

func newStorage(db *sql.DB, l *logrus.Logger) *Storage {
	return &Storage{
		db: db,
		log: l.WithFields(map[string]interface{}{
			"from": "postgres-storage",
		}),
		now: time.Now,
	}
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
	_, err := table.Users.
		INSERT(table.Users.AllColumns).
		MODEL(toRow(user, secret)).
		ExecContext(ctx, s.db)
	if err != nil {
		if isEmailConflict(err) {
			return users.User{}, storage.ErrConflict
		}
		return users.User{}, err
	}
	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	return s.getUser(ctx, s.db, table.Users.ID.EQ(postgres.UUID(id)))
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (users.User, error) {
	return s.getUser(ctx, s.db, table.Users.Email.EQ(postgres.String(email)))
}

func (s *Storage) GetUserByConfirmationToken(ctx context.Context, token string) (users.User, error) {
	if token == "" {
		return users.User{}, storage.ErrNotFound
	}
	return s.getUser(ctx, s.db, table.Users.ConfirmationToken.EQ(postgres.String(token)))
}

func (s *Storage) GetUserByRecoverToken(ctx context.Context, token string) (users.User, error) {
	if token == "" {
		return users.User{}, storage.ErrNotFound
	}
	return s.getUser(ctx, s.db, table.Users.RecoverToken.EQ(postgres.String(token)))
}

func (s *Storage) getUser(ctx context.Context, db qrm.Queryable, where postgres.BoolExpression) (users.User, error) {
	var dest model.Users
	err := postgres.
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
	return fromRow(dest), nil
}

func (s *Storage) GetUserSecret(ctx context.Context, id uuid.UUID) (users.Secret, error) {
	var dest model.Users
	err := postgres.
		SELECT(
			table.Users.PasswordHash,
			table.Users.PasswordSalt,
		).
		FROM(table.Users).
		WHERE(table.Users.ID.EQ(postgres.UUID(id))).
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

	return inTx(ctx, s.db, func(tx *sql.Tx) (users.Page, error) {
		var rows []model.Users
		err := postgres.
			SELECT(userColumns).
			FROM(table.Users).
			WHERE(where).
			ORDER_BY(orderBy(filter.Sort)...).
			LIMIT(int64(filter.Limit)).
			OFFSET(int64(filter.Offset())).
			QueryContext(ctx, tx, &rows)
		if err != nil {
			return users.Page{}, err
		}

		query, args := postgres.
			SELECT(postgres.COUNT(postgres.STAR)).
			FROM(table.Users).
			WHERE(where).
			Sql()
		var total int
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
			return users.Page{}, fmt.Errorf("count users: %w", err)
		}

		page := users.Page{
			Users: make([]users.User, 0, len(rows)),
			Total: total,
		}
		for _, row := range rows {
			page.Users = append(page.Users, fromRow(row))
		}
		return page, nil
	})
}

func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, patch storage.Patch) (users.User, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) (users.User, error) {
		var row model.Users
		err := postgres.
			SELECT(table.Users.AllColumns).
			FROM(table.Users).
			WHERE(table.Users.ID.EQ(postgres.UUID(id))).
			QueryContext(ctx, tx, &row)
		if err != nil {
			if errors.Is(err, qrm.ErrNoRows) {
				return users.User{}, storage.ErrNotFound
			}
			return users.User{}, err
		}
		secret, err := secretFromRow(row)
		if err != nil {
			return users.User{}, err
		}
		user := patch.Apply(fromRow(row))
		if patch.Secret != nil {
			secret = *patch.Secret
		}
		user.UpdatedAt = s.now().UTC()

		_, err = table.Users.
			UPDATE(table.Users.MutableColumns).
			MODEL(toRow(user, secret)).
			WHERE(table.Users.ID.EQ(postgres.UUID(id))).
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

func buildWhere(filter storage.Filter) postgres.BoolExpression {
	where := table.Users.Status.EQ(postgres.Bool(*filter.Status))
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

func contains(column postgres.ColumnString, term string) postgres.BoolExpression {
	return postgres.RawBool(
		fmt.Sprintf(`LOWER(%s.%s) LIKE #pattern ESCAPE '\'`, column.TableName(), column.Name()),
		postgres.RawArgs{"#pattern": storage.ContainsPattern(term)},
	)
}

func orderBy(sort []storage.SortField) []postgres.OrderByClause {
	clauses := make([]postgres.OrderByClause, 0, len(sort)+1)
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

func sortColumn(field string) postgres.Column {
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

func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == storage.EmailUniqueIndex
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
