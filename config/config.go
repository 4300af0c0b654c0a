package config

import (
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// Config holds all application configuration.
type Config struct {
	Port            int           `yaml:"port" json:"port" toml:"port" env:"PORT" env-default:"8080" env-description:"TCP port to listen on"`
	Workers         int           `yaml:"workers" json:"workers" toml:"workers" env:"WORKERS" env-default:"4" env-description:"Number of connection workers"`
	QueueCapacity   int           `yaml:"queue_capacity" json:"queue_capacity" toml:"queue_capacity" env:"QUEUE_CAPACITY" env-default:"0" env-description:"Pending connection limit, 0 for unbounded"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout" env:"READ_TIMEOUT" env-default:"0s" env-description:"Per-connection read deadline, 0 disables"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"0s" env-description:"Per-connection write deadline, 0 disables"`
	MaxBodyBytes    int           `yaml:"max_body_bytes" json:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES" env-default:"1048576" env-description:"Largest accepted Content-Length, 0 for no limit"`
	ReusePort       bool          `yaml:"reuse_port" json:"reuse_port" toml:"reuse_port" env:"REUSE_PORT" env-default:"false" env-description:"Set SO_REUSEPORT on the listener"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s" env-description:"Graceful shutdown limit"`
	Env             string        `yaml:"env" json:"env" toml:"env" env:"APP_ENV" env-default:"development" env-description:"Environment (development/production)"`
	LogLevel        string        `yaml:"log_level" json:"log_level" toml:"log_level" env:"LOG_LEVEL" env-description:"Log level override (debug/info/warn/error)"`
}

// New loads configuration from the process environment and command line.
func New() (*Config, error) {
	return Load(flag.CommandLine.Name(), flag.CommandLine.Output(), os.Args[1:])
}

// Load builds a Config from defaults, an optional config file, the
// environment and finally args. Command-line values win over everything.
func Load(name string, output io.Writer, args []string) (*Config, error) {
	cfg := &Config{}

	// -config must be known before the file is read
	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	path := pre.String("config", "", "")
	_ = pre.Parse(filterConfigArg(args))

	if *path != "" {
		if err := cleanenv.ReadConfig(*path, cfg); err != nil {
			return nil, errors.Wrapf(err, "read config %s", *path)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.String("config", *path, "Config file (yaml, json, toml, edn or env)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of connection workers")
	fs.IntVar(&cfg.QueueCapacity, "queue", cfg.QueueCapacity, "Pending connection limit, 0 for unbounded")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Per-connection read deadline, 0 disables")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Per-connection write deadline, 0 disables")
	fs.IntVar(&cfg.MaxBodyBytes, "max-body", cfg.MaxBodyBytes, "Largest accepted Content-Length, 0 for no limit")
	fs.BoolVar(&cfg.ReusePort, "reuse-port", cfg.ReusePort, "Set SO_REUSEPORT on the listener")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown limit")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "Environment (development/production)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level override")
	fs.Usage = func() {
		fs.PrintDefaults()
		help, _ := cleanenv.GetDescription(cfg, nil)
		io.WriteString(fs.Output(), "\n"+help+"\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can start a server
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return errors.Errorf("invalid port %d", c.Port)
	case c.Workers <= 0:
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	case c.QueueCapacity < 0:
		return errors.Errorf("queue capacity must not be negative, got %d", c.QueueCapacity)
	case c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0:
		return errors.New("timeouts must not be negative")
	case c.MaxBodyBytes < 0:
		return errors.Errorf("max body bytes must not be negative, got %d", c.MaxBodyBytes)
	case c.Env != "development" && c.Env != "production":
		return errors.Errorf("unknown environment %q", c.Env)
	}
	return nil
}

// filterConfigArg keeps only -config/--config and its value from args
func filterConfigArg(args []string) []string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return []string{a, args[i+1]}
			}
		case strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config="):
			return []string{a}
		}
	}
	return nil
}
