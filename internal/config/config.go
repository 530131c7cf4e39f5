// Package config assembles the immutable process configuration. Values are
// layered as defaults < JSON file < environment < command-line flags and then
// validated once; the result is passed explicitly to every component.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"
	"go.uber.org/zap/zapcore"

	"github.com/patric-chuzhbe/authsrv/internal/models"
)

const (
	postgresScheme   = "postgres://"
	postgresqlScheme = "postgresql://"
	sqliteScheme     = "sqlite://"
	memoryScheme     = "memory://"
)

// SupportedJWTAlgorithms lists the accepted values of JWT_ALGORITHM.
var SupportedJWTAlgorithms = []string{"HS256", "HS384", "HS512"}

type Config struct {
	RunAddr                  string        `json:"server_address" env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel                 string        `json:"log_level" env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseURL              string        `json:"database_url" env:"DATABASE_URL" validate:"dburl"`
	DBConnectionTimeout      time.Duration `json:"-" env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	JWTSecret                string        `json:"jwt_secret" env:"JWT_SECRET" validate:"required"`
	JWTAlgorithm             string        `json:"jwt_algorithm" env:"JWT_ALGORITHM" validate:"jwtalg"`
	AccessTokenExpireMinutes int           `json:"access_token_expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES" validate:"gt=0"`
	EnforceTokenExpiry       bool          `json:"enforce_token_expiry" env:"ENFORCE_TOKEN_EXPIRY"`
	BcryptCost               int           `json:"bcrypt_cost" env:"BCRYPT_COST" validate:"min=4,max=31"`
	APIPrefix                string        `json:"api_prefix" env:"API_PREFIX" validate:"startswith=/"`
	CORSAllowedOrigins       []string      `json:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	TrustedSubnet            string        `json:"trusted_subnet" env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	TrustedProxy             string        `json:"trusted_proxy" env:"TRUSTED_PROXY" validate:"omitempty,cidr"`
	GRPCAddr                 string        `json:"grpc_server_address" env:"GRPC_SERVER_ADDRESS" validate:"omitempty,hostname_port"`
}

var defaultConfig = Config{
	RunAddr:                  ":8000",
	LogLevel:                 "info",
	DatabaseURL:              "sqlite://db.sqlite3",
	DBConnectionTimeout:      10 * time.Second,
	JWTSecret:                "insecure-development-secret",
	JWTAlgorithm:             "HS256",
	AccessTokenExpireMinutes: 30,
	EnforceTokenExpiry:       false,
	BcryptCost:               10,
	APIPrefix:                "/auth",
	CORSAllowedOrigins:       []string{"http://localhost:5173", "http://127.0.0.1:5173"},
	TrustedSubnet:            "",
	TrustedProxy:             "",
	GRPCAddr:                 "",
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips the command line entirely. Tests use it.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command-line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

type flagValues struct {
	configFile    string
	runAddr       string
	logLevel      string
	databaseURL   string
	apiPrefix     string
	trustedSubnet string
	grpcAddr      string
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var (
		fromFlags flagValues
		setFlags  = map[string]bool{}
	)
	if !options.disableFlagsParsing {
		flags := flag.NewFlagSet("authsrv", flag.ContinueOnError)
		flags.StringVar(&fromFlags.configFile, "c", "", "path to the JSON configuration file")
		flags.StringVar(&fromFlags.runAddr, "a", "", "address and port to run server")
		flags.StringVar(&fromFlags.logLevel, "l", "", "logger level")
		flags.StringVar(&fromFlags.databaseURL, "d", "", "database URL: postgres://..., sqlite://<path> or memory://")
		flags.StringVar(&fromFlags.apiPrefix, "p", "", "path prefix of the authentication endpoints")
		flags.StringVar(&fromFlags.trustedSubnet, "t", "", "CIDR allowed to read /metrics")
		flags.StringVar(&fromFlags.grpcAddr, "g", "", "address and port of the gRPC server, empty disables it")
		if err := flags.Parse(options.args); err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `flags.Parse()` calling: %w", err)
		}
		flags.Visit(func(f *flag.Flag) {
			setFlags[f.Name] = true
		})
	}

	configFile := os.Getenv("CONFIG")
	if setFlags["c"] {
		configFile = fromFlags.configFile
	}
	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if setFlags["a"] {
		values.RunAddr = fromFlags.runAddr
	}
	if setFlags["l"] {
		values.LogLevel = fromFlags.logLevel
	}
	if setFlags["d"] {
		values.DatabaseURL = fromFlags.databaseURL
	}
	if setFlags["p"] {
		values.APIPrefix = fromFlags.apiPrefix
	}
	if setFlags["t"] {
		values.TrustedSubnet = fromFlags.trustedSubnet
	}
	if setFlags["g"] {
		values.GRPCAddr = fromFlags.grpcAddr
	}

	values.normalize()

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// TokenLifetime is ACCESS_TOKEN_EXPIRE_MINUTES as a duration.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// Storage derives the storage backend and its driver-level DSN from DatabaseURL.
func (c *Config) Storage() (storageType int, dsn string) {
	return parseDatabaseURL(c.DatabaseURL)
}

func parseDatabaseURL(databaseURL string) (int, string) {
	switch {
	case strings.HasPrefix(databaseURL, postgresScheme), strings.HasPrefix(databaseURL, postgresqlScheme):
		return models.StorageTypePostgresql, databaseURL
	case strings.HasPrefix(databaseURL, sqliteScheme):
		path := strings.TrimPrefix(databaseURL, sqliteScheme)
		if path == "" {
			return models.StorageTypeUnknown, ""
		}
		return models.StorageTypeSQLite, path
	case databaseURL == memoryScheme:
		return models.StorageTypeMemory, ""
	}

	return models.StorageTypeUnknown, ""
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
	values.CORSAllowedOrigins = append([]string(nil), defaults.CORSAllowedOrigins...)
}

func (c *Config) loadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	return nil
}

func (c *Config) normalize() {
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")

	origins := funk.Map(c.CORSAllowedOrigins, strings.TrimSpace).([]string)
	origins = funk.Filter(origins, func(origin string) bool { return origin != "" }).([]string)
	c.CORSAllowedOrigins = funk.UniqString(origins)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	_, err := zapcore.ParseLevel(fieldLevel.Field().String())
	return err == nil
}

func validateJWTAlgorithm(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(SupportedJWTAlgorithms, fieldLevel.Field().String())
}

func validateDatabaseURL(fieldLevel validator.FieldLevel) bool {
	storageType, _ := parseDatabaseURL(fieldLevel.Field().String())
	return storageType != models.StorageTypeUnknown
}

func (c *Config) validate() error {
	validate := validator.New()

	for tag, fn := range map[string]validator.Func{
		"loglevel": validateLogLevel,
		"jwtalg":   validateJWTAlgorithm,
		"dburl":    validateDatabaseURL,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("invalid configuration: %w", validationErrors)
		}
		return err
	}

	return nil
}
