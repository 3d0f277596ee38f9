package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/goserg/accountserver/auth/service"
	"github.com/goserg/accountserver/auth/users"
	"github.com/goserg/accountserver/internal/config"
	"github.com/goserg/accountserver/internal/web/webpath"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	auth *service.Service
	app  *fiber.App
	cfg  config.Server
	log  *logrus.Entry
}

func New(l *logrus.Logger, cfg config.Server, authService *service.Service) *Server {
	server := Server{
		auth: authService,
		cfg:  cfg,
		log:  l.WithField("from", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "accountserver",
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          server.handleError,
	})
	app.Use(server.logRequest)

	app.Post(webpath.AuthSignUp, server.handleSignUp)
	app.Post(webpath.AuthSignIn, server.handleSignIn)
	app.Patch(webpath.AuthConfirm, server.handleConfirmEmail)
	app.Post(webpath.AuthSendRecoverEmail, server.handleSendRecoverEmail)
	app.Patch(webpath.AuthResetPassword, server.handleResetPassword)
	app.Get(webpath.AuthMe, server.authenticate, server.handleMe)
	app.Patch(webpath.AuthChangePassword, server.authenticate, server.handleChangePassword)

	app.Get(webpath.Users, server.authenticate, requireRole(users.RoleAdmin), server.handleFindUsers)
	app.Post(webpath.Users, server.authenticate, requireRole(users.RoleAdmin), server.handleCreateUser)
	app.Get(webpath.User, server.authenticate, requireRole(users.RoleAdmin), server.handleFindUser)
	app.Patch(webpath.User, server.authenticate, server.handleUpdateUser)

	server.app = app
	return &server
}

func (s *Server) Serve() error {
	s.log.WithFields(logrus.Fields{
		"addr": s.cfg.Addr(),
		"tls":  s.cfg.TLS(),
	}).Info("listening")
	if s.cfg.TLS() {
		return s.app.ListenTLS(s.cfg.Addr(), s.cfg.TLSCert, s.cfg.TLSKey)
	}
	return s.app.Listen(s.cfg.Addr())
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}
