// Package config loads application configuration from config.yaml and the
// PORTAL_* environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Admin   AdminConfig   `yaml:"admin" mapstructure:"admin"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Sheets  SheetsConfig  `yaml:"sheets" mapstructure:"sheets"`
	SMTP    SMTPConfig    `yaml:"smtp" mapstructure:"smtp"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	JWTSecret      string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTLHours  int      `yaml:"token_ttl_hours" mapstructure:"token_ttl_hours"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AdminConfig configures administrative access. Admin identities and the
// credential live in configuration so they can be rotated without a deploy.
type AdminConfig struct {
	// AllowedEmails is the admin login allow-list.
	AllowedEmails []string `yaml:"allowed_emails" mapstructure:"allowed_emails"`
	// PasswordHash is the bcrypt hash of the shared admin credential.
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
	// ContactRecipient receives contact-form relays.
	ContactRecipient string `yaml:"contact_recipient" mapstructure:"contact_recipient"`
}

// StorageConfig configures document storage on disk.
type StorageConfig struct {
	// Roots is the ordered storage root list; the first entry is canonical.
	Roots    []string `yaml:"roots" mapstructure:"roots"`
	LogoFile string   `yaml:"logo_file" mapstructure:"logo_file"`
}

// SheetsConfig configures the spreadsheet import boundary.
type SheetsConfig struct {
	// Dirs is the ordered search path for the workbooks.
	Dirs          []string `yaml:"dirs" mapstructure:"dirs"`
	Homologation  string   `yaml:"homologation" mapstructure:"homologation"`
	Quality       string   `yaml:"quality" mapstructure:"quality"`
	Roster        string   `yaml:"roster" mapstructure:"roster"`
	OverridesFile string   `yaml:"overrides_file" mapstructure:"overrides_file"`
}

// SMTPConfig configures the outbound mail relay.
type SMTPConfig struct {
	Host          string `yaml:"host" mapstructure:"host"`
	Port          int    `yaml:"port" mapstructure:"port"`
	Username      string `yaml:"username" mapstructure:"username"`
	Password      string `yaml:"password" mapstructure:"password"`
	From          string `yaml:"from" mapstructure:"from"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.token_ttl_hours", 12)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("storage.roots", []string{"uploads"})
	v.SetDefault("storage.logo_file", "logo.png")
	v.SetDefault("sheets.dirs", []string{"data", "uploads"})
	v.SetDefault("sheets.homologation", "fornecedores_homologados.xlsx")
	v.SetDefault("sheets.quality", "controle_qualidade.xlsx")
	v.SetDefault("sheets.roster", "claf.xlsx")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.rate_per_minute", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed for the given mode ("serve",
// "migrate", "backfill", "import"). Modes touching the database require a
// URL unless the sqlite driver is selected; serve additionally requires the
// JWT secret and admin credential.
func (c *Config) Validate(mode string) error {
	var problems []string

	needsDB := func() {
		if c.Store.Driver != "sqlite" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "serve":
		needsDB()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.JWTSecret == "" {
			problems = append(problems, "server.jwt_secret is required")
		}
		if c.Admin.PasswordHash == "" {
			problems = append(problems, "admin.password_hash is required")
		}
		if len(c.Admin.AllowedEmails) == 0 {
			problems = append(problems, "admin.allowed_emails is required")
		}
	case "migrate", "backfill", "import":
		needsDB()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
