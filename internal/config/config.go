package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Server struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Debug    bool   `toml:"debug_mode"`
	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
	TLSCert  string `toml:"tls_cert"`
	TLSKey   string `toml:"tls_key"`
}

func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s Server) TLS() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

type Argon2 struct {
	Time    uint32 `toml:"time"`
	Memory  uint32 `toml:"memory"`
	Threads uint8  `toml:"threads"`
}

type Auth struct {
	Secret         string `toml:"secret"`
	Expiration     string `toml:"expiration"`
	PasswordPepper string `toml:"password_pepper"`
	Argon2         Argon2 `toml:"argon2"`
	RootEmail      string `toml:"root_email"`
	RootName       string `toml:"root_name"`
	RootPassword   string `toml:"root_password"`
}

// TokenTTL is zero when tokens never expire.
func (a Auth) TokenTTL() (time.Duration, error) {
	if a.Expiration == "" {
		return 0, nil
	}
	return time.ParseDuration(a.Expiration)
}

type Storage struct {
	Driver        string `toml:"driver"`
	SqliteFile    string `toml:"sqlite_file"`
	PostgresDSN   string `toml:"postgres_dsn"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

type Mail struct {
	Enabled   bool   `toml:"enabled"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	From      string `toml:"from"`
	BaseURL   string `toml:"base_url"`
	QueueSize int    `toml:"queue_size"`
	Workers   int    `toml:"workers"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Auth    Auth    `toml:"auth"`
	Storage Storage `toml:"storage"`
	Mail    Mail    `toml:"mail"`
}

func Default() Config {
	return Config{
		Server: Server{
			Host:     "0.0.0.0",
			Port:     3000,
			LogLevel: "info",
		},
		Auth: Auth{
			RootName: "root",
		},
		Storage: Storage{
			Driver:        DriverSqlite,
			SqliteFile:    "accounts.db",
			MongoDatabase: "accounts",
		},
		Mail: Mail{
			Port:      587,
			BaseURL:   "http://localhost:3000",
			QueueSize: 100,
			Workers:   2,
		},
	}
}

// New reads the toml file at path over the defaults, then applies
// environment overrides.
func New(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"JWT_SECRET", &c.Auth.Secret},
		{"ROOT_PASSWORD", &c.Auth.RootPassword},
		{"DATABASE_URL", &c.Storage.PostgresDSN},
		{"MONGO_URI", &c.Storage.MongoURI},
		{"MAIL_PASSWORD", &c.Mail.Password},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required (or JWT_SECRET)"))
	}
	if _, err := c.Auth.TokenTTL(); err != nil {
		errs = append(errs, fmt.Errorf("auth.expiration: %w", err))
	}
	if c.Auth.RootEmail != "" && c.Auth.RootPassword == "" {
		errs = append(errs, errors.New("auth.root_password is required when auth.root_email is set"))
	}
	switch c.Storage.Driver {
	case DriverSqlite:
		if c.Storage.SqliteFile == "" {
			errs = append(errs, errors.New("storage.sqlite_file is required"))
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required (or DATABASE_URL)"))
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("storage.mongo_uri is required (or MONGO_URI)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Server.TLSCert != "" && c.Server.TLSKey == "" || c.Server.TLSCert == "" && c.Server.TLSKey != "" {
		errs = append(errs, errors.New("server.tls_cert and server.tls_key must be set together"))
	}
	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "") {
		errs = append(errs, errors.New("mail.host and mail.from are required when mail is enabled"))
	}
	return errors.Join(errs...)
}
