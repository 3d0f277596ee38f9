package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/goserg/accountserver/auth/password"
	"github.com/goserg/accountserver/auth/service"
	"github.com/goserg/accountserver/auth/storage"
	"github.com/goserg/accountserver/auth/storage/mongo"
	"github.com/goserg/accountserver/auth/storage/postgres"
	"github.com/goserg/accountserver/auth/storage/sqlite"
	"github.com/goserg/accountserver/auth/token"
	"github.com/goserg/accountserver/internal/config"
	"github.com/goserg/accountserver/internal/logger"
	"github.com/goserg/accountserver/internal/mail"
	"github.com/goserg/accountserver/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

type closableStorage interface {
	storage.UserStorage
	Close() error
}

func run() error {
	configPath := flag.String("config", "configs/server.toml", "path to the server config")
	flag.Parse()

	cfg, err := config.New(*configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	l, err := logger.New(cfg.Server.LogLevel, cfg.Server.LogJSON)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, l, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.WithError(err).Error("close storage")
		}
	}()

	sender, err := newSender(l, cfg)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	dispatcher := mail.NewDispatcher(l, sender, cfg.Mail.QueueSize)
	dispatcher.Run(context.Background(), cfg.Mail.Workers)
	defer dispatcher.Close()

	ttl, err := cfg.Auth.TokenTTL()
	if err != nil {
		return err
	}
	issuer, err := token.NewIssuer(cfg.Auth.Secret, ttl)
	if err != nil {
		return err
	}
	hasher := password.New(password.Params{
		Time:    cfg.Auth.Argon2.Time,
		Memory:  cfg.Auth.Argon2.Memory,
		Threads: cfg.Auth.Argon2.Threads,
	}, cfg.Auth.PasswordPepper)

	authService, err := service.New(ctx, l, service.Config{
		BaseURL:      cfg.Mail.BaseURL,
		RootEmail:    cfg.Auth.RootEmail,
		RootName:     cfg.Auth.RootName,
		RootPassword: cfg.Auth.RootPassword,
	}, store, hasher, issuer, dispatcher)
	if err != nil {
		return err
	}

	server := web.New(l, cfg.Server, authService)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	l.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		return err
	}
	return <-serveErr
}

func openStorage(ctx context.Context, l *logrus.Logger, cfg config.Storage) (closableStorage, error) {
	switch cfg.Driver {
	case config.DriverSqlite:
		return sqlite.New(l, cfg.SqliteFile)
	case config.DriverPostgres:
		return postgres.New(ctx, l, cfg.PostgresDSN)
	case config.DriverMongo:
		return mongo.New(ctx, l, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, errors.New("unknown storage driver " + cfg.Driver)
}

func newSender(l *logrus.Logger, cfg config.Config) (mail.Sender, error) {
	if !cfg.Mail.Enabled {
		return mail.NewLogSender(l), nil
	}
	return mail.NewSMTPSender(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		Debug:    cfg.Server.Debug,
	})
}
