package mail

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	embedded "github.com/goserg/accountserver"
)

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Debug    bool
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender renders the embedded mail templates and delivers them over SMTP.
type SMTPSender struct {
	from   string
	engine *html.Engine
	dialer dialer
}

func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	engine, err := newEngine(cfg.Debug)
	if err != nil {
		return nil, err
	}
	return &SMTPSender{
		from:   cfg.From,
		engine: engine,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

func newEngine(debug bool) (*html.Engine, error) {
	fsFS, err := fs.Sub(embedded.MailTemplates, "templates/mail")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(fsFS), ".html")
	engine.Debug(debug)
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	return engine, nil
}

func (s *SMTPSender) Render(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := s.engine.Render(&buf, msg.Template, msg.binding(), layout); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := s.Render(msg)
	if err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", body)
	return s.dialer.DialAndSend(m)
}

// LogSender only logs outgoing mail. Used when mail is disabled.
type LogSender struct {
	log *logrus.Entry
}

func NewLogSender(l *logrus.Logger) *LogSender {
	return &LogSender{
		log: l.WithField("from", "mail"),
	}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.WithFields(logrus.Fields{
		"to":       msg.To,
		"subject":  msg.Subject,
		"template": msg.Template,
	}).Info("mail delivery disabled, message dropped")
	return nil
}
