package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goserg/accountserver/auth/password"
	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/token"
	"github.com/goserg/accountserver/auth/users"
	"github.com/goserg/accountserver/internal/mail"
	"github.com/goserg/accountserver/internal/normalize"
)

const (
	subjectEmailConfirmation = "Confirm your email"
	subjectRecoverPassword   = "Password reset"
)

// MailQueue accepts messages for asynchronous delivery.
type MailQueue interface {
	Dispatch(msg mail.Message) error
}

type Config struct {
	// BaseURL prefixes the links sent by mail.
	BaseURL      string
	RootEmail    string
	RootName     string
	RootPassword string
}

type Service struct {
	storage storage.UserStorage
	hasher  *password.Hasher
	issuer  *token.Issuer
	mail    MailQueue
	cfg     Config
	log     *logrus.Entry
}

func New(
	ctx context.Context,
	l *logrus.Logger,
	cfg Config,
	store storage.UserStorage,
	hasher *password.Hasher,
	issuer *token.Issuer,
	mailQueue MailQueue,
) (*Service, error) {
	s := Service{
		storage: store,
		hasher:  hasher,
		issuer:  issuer,
		mail:    mailQueue,
		cfg:     cfg,
		log:     l.WithField("from", "auth-service"),
	}
	if err := s.ensureRoot(ctx); err != nil {
		return nil, fmt.Errorf("seed root user: %w", err)
	}
	return &s, nil
}

func (s *Service) ensureRoot(ctx context.Context) error {
	if s.cfg.RootEmail == "" {
		return nil
	}
	_, err := s.storage.GetUserByEmail(ctx, s.cfg.RootEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	secret, err := s.hasher.NewSecret(s.cfg.RootPassword)
	if err != nil {
		return err
	}
	name := normalize.Name(s.cfg.RootName)
	if name == "" {
		name = "root"
	}
	_, err = s.storage.CreateUser(ctx, users.User{
		ID:     uuid.New(),
		Email:  s.cfg.RootEmail,
		Name:   name,
		Role:   users.RoleAdmin,
		Status: true,
	}, secret)
	if errors.Is(err, storage.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.WithField("email", s.cfg.RootEmail).Info("root user created")
	return nil
}

// SignUp registers a USER account awaiting email confirmation.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (users.User, error) {
	req.Email = normalize.Email(req.Email)
	req.Name = normalize.Name(req.Name)
	if err := req.Validate(); err != nil {
		return users.User{}, validationError(err)
	}
	confirmation, err := token.NewOpaque()
	if err != nil {
		return users.User{}, err
	}
	user, err := s.createUser(ctx, users.User{
		ID:                uuid.New(),
		Email:             req.Email,
		Name:              req.Name,
		Role:              users.RoleUser,
		Status:            true,
		ConfirmationToken: confirmation,
	}, req.Password)
	if err != nil {
		return users.User{}, err
	}

	s.dispatch(mail.Message{
		To:       user.Email,
		Subject:  subjectEmailConfirmation,
		Template: mail.TemplateEmailConfirmation,
		Context: map[string]any{
			"Name":  user.Name,
			"Token": confirmation,
			"Link":  s.link("auth/confirm", confirmation),
		},
	})
	return user, nil
}

func (s *Service) createUser(ctx context.Context, user users.User, plaintext string) (users.User, error) {
	secret, err := s.hasher.NewSecret(plaintext)
	if err != nil {
		return users.User{}, err
	}
	created, err := s.storage.CreateUser(ctx, user, secret)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return users.User{}, newError(ErrConflict, "email already in use", err)
		}
		return users.User{}, newError(ErrPersistence, "could not save the user", err)
	}
	return created, nil
}

// ConfirmEmail clears the confirmation token of an active user.
func (s *Service) ConfirmEmail(ctx context.Context, confirmation string) (users.User, error) {
	user, err := s.storage.GetUserByConfirmationToken(ctx, confirmation)
	if err != nil {
		return users.User{}, s.lookupError(err, "user not found")
	}
	if !user.Status {
		return users.User{}, newError(ErrNotFound, "user not found", nil)
	}
	user, err = s.storage.UpdateUser(ctx, user.ID, storage.Patch{ConfirmationToken: storage.Ptr("")})
	if err != nil {
		return users.User{}, s.lookupError(err, "user not found")
	}
	return user, nil
}

// SignIn checks the credentials and returns a bearer token.
func (s *Service) SignIn(ctx context.Context, creds Credentials) (string, error) {
	invalid := newError(ErrNotAuthenticated, "invalid credentials", nil)

	user, err := s.storage.GetUserByEmail(ctx, normalize.Email(creds.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", invalid
		}
		return "", newError(ErrPersistence, "could not load the user", err)
	}
	secret, err := s.storage.GetUserSecret(ctx, user.ID)
	if err != nil {
		return "", newError(ErrPersistence, "could not load the user", err)
	}
	ok, err := s.hasher.Verify(creds.Password, secret)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", invalid
	}
	if !user.Confirmed() {
		return "", newError(ErrNotAuthenticated, "confirm your email address before signing in", nil)
	}
	return s.issuer.Issue(user.ID)
}

// ChangePassword replaces the password hash and salt of user id.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, change PasswordChange) error {
	if err := change.Validate(); err != nil {
		return validationError(err)
	}
	secret, err := s.hasher.NewSecret(change.Password)
	if err != nil {
		return err
	}
	_, err = s.storage.UpdateUser(ctx, id, storage.Patch{Secret: &secret})
	if err != nil {
		return s.lookupError(err, "user not found")
	}
	return nil
}

// SendRecoverPasswordEmail issues a recover token and mails it.
func (s *Service) SendRecoverPasswordEmail(ctx context.Context, email string) error {
	user, err := s.storage.GetUserByEmail(ctx, normalize.Email(email))
	if err != nil {
		return s.lookupError(err, "no user registered with this email")
	}
	recoverToken, err := token.NewOpaque()
	if err != nil {
		return err
	}
	user, err = s.storage.UpdateUser(ctx, user.ID, storage.Patch{RecoverToken: &recoverToken})
	if err != nil {
		return s.lookupError(err, "no user registered with this email")
	}

	s.dispatch(mail.Message{
		To:       user.Email,
		Subject:  subjectRecoverPassword,
		Template: mail.TemplateRecoverPassword,
		Context: map[string]any{
			"Name":  user.Name,
			"Token": recoverToken,
			"Link":  s.link("auth/reset-password", recoverToken),
		},
	})
	return nil
}

// ResetPassword changes the password of the token holder and consumes the
// token. The two writes are not atomic.
func (s *Service) ResetPassword(ctx context.Context, recoverToken string, change PasswordChange) error {
	user, err := s.storage.GetUserByRecoverToken(ctx, recoverToken)
	if err != nil {
		return s.lookupError(err, "invalid token")
	}
	if err := s.ChangePassword(ctx, user.ID, change); err != nil {
		return err
	}
	_, err = s.storage.UpdateUser(ctx, user.ID, storage.Patch{RecoverToken: storage.Ptr("")})
	if err != nil {
		return s.lookupError(err, "invalid token")
	}
	return nil
}

func (s *Service) dispatch(msg mail.Message) {
	if s.mail == nil {
		return
	}
	if err := s.mail.Dispatch(msg); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"to":       msg.To,
			"template": msg.Template,
		}).Error("dispatch mail")
	}
}

func (s *Service) link(path, tok string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + path + "/" + tok
}

func (s *Service) lookupError(err error, notFound string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return newError(ErrNotFound, notFound, err)
	}
	return newError(ErrPersistence, "storage failure", err)
}
