// Package config loads server settings from defaults, an optional config
// file, environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FOLIO_ADDR.
const EnvPrefix = "FOLIO"

// Config is the resolved configuration.
type Config struct {
	Addr       string `mapstructure:"addr"`
	BaseURL    string `mapstructure:"base_url"`
	ContentDir string `mapstructure:"content_dir"`
	PublicDir  string `mapstructure:"public_dir"`
	DBPath     string `mapstructure:"db_path"`
	CORSOrigin string `mapstructure:"cors_origin"`

	Auth AuthConfig `mapstructure:"auth"`
	AI   AIConfig   `mapstructure:"ai"`
}

// AuthConfig configures the admin login.
type AuthConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

// AIConfig configures the editor assistant.
type AIConfig struct {
	Provider        string `mapstructure:"provider"`
	Model           string `mapstructure:"model"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
}

// GalleryPath is the gallery file inside the content directory.
func (c Config) GalleryPath() string {
	return filepath.Join(c.ContentDir, "gallery.json")
}

// legacyEnv maps keys to the unprefixed variables older deployments set.
var legacyEnv = map[string]string{
	"auth.password_hash":   "ADMIN_PASSWORD_HASH",
	"auth.jwt_secret":      "ADMIN_JWT_SECRET",
	"ai.gemini_api_key":    "GEMINI_API_KEY",
	"ai.anthropic_api_key": "ANTHROPIC_API_KEY",
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("addr", ":3000")
	v.SetDefault("base_url", "http://localhost:3000")
	v.SetDefault("content_dir", "content")
	v.SetDefault("public_dir", "public")
	v.SetDefault("db_path", "folio.db")
	v.SetDefault("cors_origin", "")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.anthropic_api_key", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, env)
	}

	return v
}

// BindFlags lets the given flags override file and environment values.
// Flag names use dashes where keys use underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys ...string) error {
	for _, key := range keys {
		name := strings.ReplaceAll(key, "_", "-")
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("bind flag %s: no such flag", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads cfgFile, or folio.yaml in the working directory when cfgFile is
// empty, and decodes the result. A missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("folio")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is empty")
	}
	if c.ContentDir == "" {
		return errors.New("config: content_dir is empty")
	}
	switch strings.ToLower(c.AI.Provider) {
	case "gemini", "anthropic", "none":
	default:
		return fmt.Errorf("config: unknown ai.provider %q", c.AI.Provider)
	}
	return nil
}
