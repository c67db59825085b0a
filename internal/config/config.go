// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage variants.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageJSON     = "json"
)

// Duration is a time.Duration read from text such as "5s" in both the
// JSON config file and the environment.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// String implements flag.Value.
func (d *Duration) String() string { return time.Duration(*d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error { return d.UnmarshalText([]byte(s)) }

// S3Options points the JSON document at an S3 bucket instead of the local filesystem.
type S3Options struct {
	Bucket          string `json:"bucket" env:"BUCKET"`
	Region          string `json:"region" env:"REGION"`
	Endpoint        string `json:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `json:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	PathStyle       bool   `json:"path_style" env:"PATH_STYLE"`
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address" env:"SERVER_ADDRESS"`

	// Storage selects the inventory store: postgres, sqlite or json.
	Storage string `json:"storage" env:"STORAGE"`

	// DatabaseDSN holds the database connection string, or the file path for sqlite.
	DatabaseDSN string `json:"database_dsn" env:"DATABASE_DSN"`

	// DocumentPath is the key of the JSON document for the json storage.
	DocumentPath string `json:"document_path" env:"DOCUMENT_PATH"`

	S3 S3Options `json:"s3" envPrefix:"DOCUMENT_S3_"`

	// SecretKey signs session cookies. A random key is generated when empty.
	SecretKey string `json:"secret_key" env:"SECRET_KEY"`

	LogLevel     string   `json:"log_level" env:"LOG_LEVEL"`
	StoreTimeout Duration `json:"store_timeout" env:"STORE_TIMEOUT"`
	LockTimeout  Duration `json:"lock_timeout" env:"LOCK_TIMEOUT"`

	// Tags are the known part categories; anything else shows up under "other".
	Tags []string `json:"tags" env:"TAGS" envSeparator:","`

	// Seed writes starter parts into an empty store.
	Seed bool `json:"seed" env:"SEED"`

	TLSCert string `json:"tls_cert" env:"TLS_CERT"`
	TLSKey  string `json:"tls_key" env:"TLS_KEY"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// AuthEnabled reports whether the store keeps user accounts.
func (o *Options) AuthEnabled() bool {
	return o.Storage == StoragePostgres || o.Storage == StorageSQLite
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

// Parse loads a .env file when present, then reads the process arguments
// and environment.
func Parse() (*Options, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Load(os.Args[1:], env.ToMap(os.Environ()))
}

// Load builds Options from flags, then the JSON config file, then the
// environment; later sources override earlier ones.
func Load(args []string, environ map[string]string) (*Options, error) {
	options := &Options{}
	tags := "generator,transfer switch"
	options.StoreTimeout = Duration(5 * time.Second)
	options.LockTimeout = Duration(2 * time.Second)

	fs := flag.NewFlagSet("partkeeper", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.Storage, "s", StorageSQLite, "storage: postgres, sqlite or json")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address (file path for sqlite)")
	fs.StringVar(&options.DocumentPath, "doc", "inventory.json", "json document path")
	fs.StringVar(&options.SecretKey, "k", "", "session signing key")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.Var(&options.StoreTimeout, "store-timeout", "timeout of a single store call")
	fs.Var(&options.LockTimeout, "lock-timeout", "how long a mutation waits for a busy part")
	fs.StringVar(&tags, "tags", tags, "comma separated known tags")
	fs.BoolVar(&options.Seed, "seed", false, "seed starter parts into an empty store")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	options.Tags = splitTags(tags)

	// Override flags with environment variables if set
	if configPath := environ["CONFIG"]; configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(options, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	options.Tags = splitTags(strings.Join(options.Tags, ","))

	if err := options.validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func (o *Options) validate() error {
	o.Storage = strings.ToLower(strings.TrimSpace(o.Storage))
	switch o.Storage {
	case StoragePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("config: postgres storage requires a database DSN")
		}
	case StorageSQLite:
		if o.DatabaseDSN == "" {
			o.DatabaseDSN = "inventory.db"
		}
	case StorageJSON:
		if o.DocumentPath == "" {
			return errors.New("config: json storage requires a document path")
		}
	default:
		return fmt.Errorf("config: unknown storage %q", o.Storage)
	}

	if o.StoreTimeout <= 0 || o.LockTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("config: tls cert and key must be set together")
	}
	return nil
}

func splitTags(raw string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
