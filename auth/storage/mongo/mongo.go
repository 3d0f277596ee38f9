// Package mongo stores users in a single MongoDB collection with unique
// indexes on email and on both tokens.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/users"
)

const collectionName = "users"

var withoutSecret = bson.D{
	{Key: "password_hash", Value: 0},
	{Key: "password_salt", Value: 0},
}

var sortKeys = map[string]string{
	storage.SortName:      "name",
	storage.SortEmail:     "email",
	storage.SortRole:      "role",
	storage.SortStatus:    "status",
	storage.SortCreatedAt: "created_at",
	storage.SortUpdatedAt: "updated_at",
}

type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
	log    *logrus.Entry
	now    func() time.Time
}

var _ storage.UserStorage = (*Storage)(nil)

func New(ctx context.Context, l *logrus.Logger, uri, database string) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "mongo-storage",
	})
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Join(err, client.Disconnect(ctx))
	}
	s := &Storage{
		client: client,
		users:  client.Database(database).Collection(collectionName),
		log:    log,
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ensure indexes: %w", err), client.Disconnect(ctx))
	}
	log.WithField("database", database).Info("user storage connected")
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(storage.EmailUniqueIndex),
		},
		{
			Keys:    bson.D{{Key: "confirmation_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("users_confirmation_token_uindex"),
		},
		{
			Keys:    bson.D{{Key: "recover_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("users_recover_token_uindex"),
		},
	})
	return err
}

func isEmailConflict(err error) bool {
	return mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), storage.EmailUniqueIndex)
}

func (s *Storage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Storage) CreateUser(ctx context.Context, user users.User, secret users.Secret) (users.User, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := s.users.InsertOne(ctx, toDocument(user, secret))
	if err != nil {
		if isEmailConflict(err) {
			return users.User{}, storage.ErrConflict
		}
		return users.User{}, err
	}
	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	return s.getUser(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (users.User, error) {
	return s.getUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Storage) GetUserByConfirmationToken(ctx context.Context, token string) (users.User, error) {
	if token == "" {
		return users.User{}, storage.ErrNotFound
	}
	return s.getUser(ctx, bson.D{{Key: "confirmation_token", Value: token}})
}

func (s *Storage) GetUserByRecoverToken(ctx context.Context, token string) (users.User, error) {
	if token == "" {
		return users.User{}, storage.ErrNotFound
	}
	return s.getUser(ctx, bson.D{{Key: "recover_token", Value: token}})
}

func (s *Storage) getUser(ctx context.Context, filter bson.D) (users.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter, options.FindOne().SetProjection(withoutSecret)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return users.User{}, storage.ErrNotFound
		}
		return users.User{}, err
	}
	return doc.user()
}

func (s *Storage) GetUserSecret(ctx context.Context, id uuid.UUID) (users.Secret, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return users.Secret{}, storage.ErrNotFound
		}
		return users.Secret{}, err
	}
	return doc.secret(), nil
}

func (s *Storage) FindUsers(ctx context.Context, filter storage.Filter) (users.Page, error) {
	filter = filter.Normalize()
	query := buildFilter(filter)

	opts := options.Find().
		SetProjection(withoutSecret).
		SetSort(buildSort(filter.Sort)).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))
	cursor, err := s.users.Find(ctx, query, opts)
	if err != nil {
		return users.Page{}, err
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return users.Page{}, err
	}

	total, err := s.users.CountDocuments(ctx, query)
	if err != nil {
		return users.Page{}, fmt.Errorf("count users: %w", err)
	}

	page := users.Page{
		Users: make([]users.User, 0, len(docs)),
		Total: int(total),
	}
	for _, doc := range docs {
		u, err := doc.user()
		if err != nil {
			return users.Page{}, err
		}
		page.Users = append(page.Users, u)
	}
	return page, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, patch storage.Patch) (users.User, error) {
	update := buildUpdate(patch, s.now().UTC().Truncate(time.Millisecond))
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutSecret)

	var doc userDocument
	err := s.users.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id.String()}}, update, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return users.User{}, storage.ErrNotFound
		case isEmailConflict(err):
			return users.User{}, storage.ErrConflict
		}
		return users.User{}, err
	}
	return doc.user()
}

func buildFilter(filter storage.Filter) bson.D {
	query := bson.D{{Key: "status", Value: *filter.Status}}
	if filter.Name != "" {
		query = append(query, bson.E{Key: "name", Value: contains(filter.Name)})
	}
	if filter.Email != "" {
		query = append(query, bson.E{Key: "email", Value: contains(filter.Email)})
	}
	if filter.Role != "" {
		query = append(query, bson.E{Key: "role", Value: contains(filter.Role)})
	}
	return query
}

func contains(term string) bson.Regex {
	return bson.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

func buildSort(sort []storage.SortField) bson.D {
	doc := make(bson.D, 0, len(sort)+1)
	for _, f := range sort {
		key, ok := sortKeys[f.Field]
		if !ok {
			continue
		}
		dir := 1
		if f.Desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: key, Value: dir})
	}
	if len(sort) == 0 {
		doc = append(doc, bson.E{Key: "created_at", Value: 1})
	}
	return append(doc, bson.E{Key: "_id", Value: 1})
}

func buildUpdate(patch storage.Patch, now time.Time) bson.D {
	set := bson.D{{Key: "updated_at", Value: now}}
	var unset bson.D

	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *patch.Email})
	}
	if patch.Role != nil {
		set = append(set, bson.E{Key: "role", Value: string(*patch.Role)})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *patch.Status})
	}
	if patch.Secret != nil {
		set = append(set,
			bson.E{Key: "password_hash", Value: patch.Secret.PasswordHash},
			bson.E{Key: "password_salt", Value: patch.Secret.Salt},
		)
	}
	tokens := []struct {
		key   string
		value *string
	}{
		{"confirmation_token", patch.ConfirmationToken},
		{"recover_token", patch.RecoverToken},
	}
	for _, token := range tokens {
		switch {
		case token.value == nil:
		case *token.value == "":
			unset = append(unset, bson.E{Key: token.key, Value: ""})
		default:
			set = append(set, bson.E{Key: token.key, Value: *token.value})
		}
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}
