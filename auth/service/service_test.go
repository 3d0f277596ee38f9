package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/goserg/accountserver/auth/password"
	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/storage/sqlite"
	"github.com/goserg/accountserver/auth/token"
	"github.com/goserg/accountserver/auth/users"
	"github.com/goserg/accountserver/internal/mail"
)

type mailQueueMock struct {
	mock.Mock
}

func (m *mailQueueMock) Dispatch(msg mail.Message) error {
	return m.Called(msg).Error(0)
}

func isTemplate(name string) interface{} {
	return mock.MatchedBy(func(msg mail.Message) bool { return msg.Template == name })
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *sqlite.Storage
	hasher  *password.Hasher
	issuer  *token.Issuer
	mail    *mailQueueMock
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	l := logrus.New()
	l.SetOutput(io.Discard)

	store, err := sqlite.New(l, filepath.Join(s.T().TempDir(), "accounts.db"))
	s.Require().NoError(err)
	issuer, err := token.NewIssuer("test-secret", 0)
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.store = store
	s.hasher = password.New(password.Params{Time: 1, Memory: 1024, Threads: 1}, "pepper")
	s.issuer = issuer
	s.mail = &mailQueueMock{}
	s.service, err = New(s.ctx, l, Config{
		BaseURL:      "http://localhost:3000/",
		RootEmail:    "root@example.com",
		RootName:     "  Root  ",
		RootPassword: "rootpass",
	}, store, s.hasher, issuer, s.mail)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *ServiceSuite) signUp(email, pw string) users.User {
	s.mail.On("Dispatch", isTemplate(mail.TemplateEmailConfirmation)).Return(nil).Once()
	u, err := s.service.SignUp(s.ctx, SignUpRequest{
		Email:                email,
		Name:                 "A",
		Password:             pw,
		PasswordConfirmation: pw,
	})
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) confirmed(email, pw string) users.User {
	u := s.signUp(email, pw)
	_, err := s.service.ConfirmEmail(s.ctx, u.ConfirmationToken)
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) TestRootSeeded() {
	root, err := s.store.GetUserByEmail(s.ctx, "root@example.com")
	s.Require().NoError(err)
	s.Equal(users.RoleAdmin, root.Role)
	s.Equal("Root", root.Name)
	s.True(root.Confirmed())

	tok, err := s.service.SignIn(s.ctx, Credentials{Email: "root@example.com", Password: "rootpass"})
	s.Require().NoError(err)
	s.NotEmpty(tok)
}

func (s *ServiceSuite) TestRootSeedIsIdempotent() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	_, err := New(s.ctx, l, Config{RootEmail: "root@example.com", RootPassword: "other"}, s.store, s.hasher, s.issuer, s.mail)
	s.Require().NoError(err)

	page, err := s.store.FindUsers(s.ctx, storage.Filter{Email: "root@"})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
}

// seedRaceStore hides an existing root so the seed reaches CreateUser and
// loses to the stored row.
type seedRaceStore struct {
	storage.UserStorage
}

func (seedRaceStore) GetUserByEmail(context.Context, string) (users.User, error) {
	return users.User{}, storage.ErrNotFound
}

func (s *ServiceSuite) TestRootSeedLostRaceIsNotLoggedAsCreated() {
	l, hook := logtest.NewNullLogger()
	_, err := New(s.ctx, l, Config{RootEmail: "root@example.com", RootPassword: "other"},
		seedRaceStore{s.store}, s.hasher, s.issuer, s.mail)
	s.Require().NoError(err)

	for _, entry := range hook.AllEntries() {
		s.NotEqual("root user created", entry.Message)
	}
}

func (s *ServiceSuite) TestExampleFlow() {
	var sent mail.Message
	s.mail.On("Dispatch", isTemplate(mail.TemplateEmailConfirmation)).
		Run(func(args mock.Arguments) { sent = args.Get(0).(mail.Message) }).
		Return(nil).Once()

	u, err := s.service.SignUp(s.ctx, SignUpRequest{
		Email:                "a@b.com",
		Name:                 "A",
		Password:             "p1",
		PasswordConfirmation: "p1",
	})
	s.Require().NoError(err)
	s.Equal(users.RoleUser, u.Role)
	s.True(u.Status)
	s.NotEmpty(u.ConfirmationToken)
	s.Equal("a@b.com", sent.To)
	s.Equal(u.ConfirmationToken, sent.Context["Token"])
	s.Equal("http://localhost:3000/auth/confirm/"+u.ConfirmationToken, sent.Context["Link"])

	confirmed, err := s.service.ConfirmEmail(s.ctx, u.ConfirmationToken)
	s.Require().NoError(err)
	s.Empty(confirmed.ConfirmationToken)

	bearer, err := s.service.SignIn(s.ctx, Credentials{Email: "a@b.com", Password: "p1"})
	s.Require().NoError(err)

	me, err := s.service.Authenticate(s.ctx, bearer)
	s.Require().NoError(err)
	s.Equal(u.ID, me.ID)
	s.mail.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestSignUp_PasswordMismatch() {
	tests := []SignUpRequest{
		{Email: "ok@example.com", Name: "Ok", Password: "secret1", PasswordConfirmation: "secret2"},
		{Email: "not-an-email", Name: "", Password: "a", PasswordConfirmation: "b"},
		{Email: "", Name: "X", Password: "a", PasswordConfirmation: ""},
	}
	for _, req := range tests {
		_, err := s.service.SignUp(s.ctx, req)
		s.ErrorIs(err, ErrValidation)
		var svcErr *Error
		s.Require().ErrorAs(err, &svcErr)
		s.Contains(svcErr.FieldErrors(), "passwordConfirmation")
	}
	s.mail.AssertNotCalled(s.T(), "Dispatch", mock.Anything)
}

func (s *ServiceSuite) TestSignUp_EmptyPassword() {
	_, err := s.service.SignUp(s.ctx, SignUpRequest{Email: "e@example.com", Name: "E"})
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceSuite) TestSignUp_NormalizesName() {
	s.mail.On("Dispatch", mock.Anything).Return(nil).Once()
	u, err := s.service.SignUp(s.ctx, SignUpRequest{
		Email:                " n@example.com ",
		Name:                 "  Ann   Lee ",
		Password:             "pw",
		PasswordConfirmation: "pw",
	})
	s.Require().NoError(err)
	s.Equal("Ann Lee", u.Name)
	s.Equal("n@example.com", u.Email)
}

func (s *ServiceSuite) TestSignUp_DuplicateEmail() {
	s.signUp("dup@example.com", "pw")

	_, err := s.service.SignUp(s.ctx, SignUpRequest{
		Email:                "dup@example.com",
		Name:                 "B",
		Password:             "pw",
		PasswordConfirmation: "pw",
	})
	s.ErrorIs(err, ErrConflict)
}

func (s *ServiceSuite) TestSignUp_Concurrent() {
	s.mail.On("Dispatch", mock.Anything).Return(nil)

	const n = 2
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.SignUp(s.ctx, SignUpRequest{
				Email:                "race@example.com",
				Name:                 "Racer",
				Password:             "pw",
				PasswordConfirmation: "pw",
			})
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		s.ErrorIs(err, ErrConflict)
		conflict++
	}
	s.Equal(1, ok)
	s.Equal(1, conflict)
	s.mail.AssertNumberOfCalls(s.T(), "Dispatch", 1)
}

func (s *ServiceSuite) TestSignUp_MailFailureIsNotFatal() {
	s.mail.On("Dispatch", mock.Anything).Return(mail.ErrQueueClosed).Once()
	_, err := s.service.SignUp(s.ctx, SignUpRequest{
		Email:                "m@example.com",
		Name:                 "M",
		Password:             "pw",
		PasswordConfirmation: "pw",
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestSignIn_Errors() {
	s.signUp("pending@example.com", "right")
	s.confirmed("done@example.com", "right")

	_, wrongPassword := s.service.SignIn(s.ctx, Credentials{Email: "done@example.com", Password: "wrong"})
	_, unknown := s.service.SignIn(s.ctx, Credentials{Email: "ghost@example.com", Password: "right"})
	_, pending := s.service.SignIn(s.ctx, Credentials{Email: "pending@example.com", Password: "right"})
	_, pendingWrong := s.service.SignIn(s.ctx, Credentials{Email: "pending@example.com", Password: "wrong"})

	for _, err := range []error{wrongPassword, unknown, pending, pendingWrong} {
		s.ErrorIs(err, ErrNotAuthenticated)
	}
	s.Equal(wrongPassword.Error(), unknown.Error())
	s.Equal(wrongPassword.Error(), pendingWrong.Error())
	s.NotEqual(wrongPassword.Error(), pending.Error())
}

func (s *ServiceSuite) TestConfirmEmail() {
	_, err := s.service.ConfirmEmail(s.ctx, "unknown")
	s.ErrorIs(err, ErrNotFound)

	u := s.signUp("c@example.com", "pw")
	_, err = s.service.ConfirmEmail(s.ctx, u.ConfirmationToken)
	s.Require().NoError(err)

	_, err = s.service.ConfirmEmail(s.ctx, u.ConfirmationToken)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestConfirmEmail_InactiveUser() {
	u := s.signUp("inactive@example.com", "pw")
	_, err := s.store.UpdateUser(s.ctx, u.ID, storage.Patch{Status: storage.Ptr(false)})
	s.Require().NoError(err)

	_, err = s.service.ConfirmEmail(s.ctx, u.ConfirmationToken)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestRecoverAndReset() {
	u := s.confirmed("r@example.com", "old-password")

	err := s.service.SendRecoverPasswordEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, ErrNotFound)

	var sent mail.Message
	s.mail.On("Dispatch", isTemplate(mail.TemplateRecoverPassword)).
		Run(func(args mock.Arguments) { sent = args.Get(0).(mail.Message) }).
		Return(nil).Once()
	s.Require().NoError(s.service.SendRecoverPasswordEmail(s.ctx, "r@example.com"))

	stored, err := s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(stored.Recovering())
	s.Equal(stored.RecoverToken, sent.Context["Token"])

	err = s.service.ResetPassword(s.ctx, stored.RecoverToken, PasswordChange{Password: "a", PasswordConfirmation: "b"})
	s.ErrorIs(err, ErrValidation)

	err = s.service.ResetPassword(s.ctx, stored.RecoverToken, PasswordChange{Password: "new-password", PasswordConfirmation: "new-password"})
	s.Require().NoError(err)

	secret, err := s.store.GetUserSecret(s.ctx, u.ID)
	s.Require().NoError(err)
	ok, err := s.hasher.Verify("old-password", secret)
	s.Require().NoError(err)
	s.False(ok)
	ok, err = s.hasher.Verify("new-password", secret)
	s.Require().NoError(err)
	s.True(ok)

	stored, err = s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.False(stored.Recovering())

	err = s.service.ResetPassword(s.ctx, sent.Context["Token"].(string), PasswordChange{Password: "x", PasswordConfirmation: "x"})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestChangePassword() {
	u := s.confirmed("p@example.com", "first")

	s.ErrorIs(s.service.ChangePassword(s.ctx, uuid.New(), PasswordChange{Password: "x", PasswordConfirmation: "x"}), ErrNotFound)
	s.ErrorIs(s.service.ChangePassword(s.ctx, u.ID, PasswordChange{Password: "x", PasswordConfirmation: "y"}), ErrValidation)
	s.Require().NoError(s.service.ChangePassword(s.ctx, u.ID, PasswordChange{Password: "second", PasswordConfirmation: "second"}))

	_, err := s.service.SignIn(s.ctx, Credentials{Email: "p@example.com", Password: "first"})
	s.ErrorIs(err, ErrNotAuthenticated)
	_, err = s.service.SignIn(s.ctx, Credentials{Email: "p@example.com", Password: "second"})
	s.NoError(err)
}

func (s *ServiceSuite) TestAuthenticate_Errors() {
	_, err := s.service.Authenticate(s.ctx, "garbage")
	s.ErrorIs(err, ErrNotAuthenticated)

	orphan, err := s.issuer.Issue(uuid.New())
	s.Require().NoError(err)
	_, err = s.service.Authenticate(s.ctx, orphan)
	s.ErrorIs(err, ErrNotAuthenticated)
}
