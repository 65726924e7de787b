// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/core/endpointmanager"
	"codeberg.org/galaxy/console/core/idgen"
)

// Global exposes the server configuration.
var Global ServerConfig

// Possible values for Master.LoadBalancing.
const (
	RoundRobin        = "round-robin"
	Random            = "random"
	LeastRecentlyUsed = "least-recently-used"
)

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Host                     string      `env:"GALAXY_CONSOLE_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"GALAXY_CONSOLE_PORT,overwrite" yaml:"port"`
		UnixSocket               string      `env:"GALAXY_CONSOLE_UNIXSOCKET" yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"GALAXY_CONSOLE_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
		UnixSocketUser           string      `env:"GALAXY_CONSOLE_UNIXSOCKET_USER" yaml:"unixSocketUser"`
		UnixSocketGroup          string      `env:"GALAXY_CONSOLE_UNIXSOCKET_GROUP" yaml:"unixSocketGroup"`
	} `yaml:"basic"`

	// Master describes how the Galaxy master gateway is reached.
	Master struct {
		Endpoints      []string      `env:"GALAXY_CONSOLE_MASTER_ENDPOINTS,overwrite" yaml:"endpoints"`
		LoadBalancing  string        `env:"GALAXY_CONSOLE_MASTER_LOAD_BALANCING,overwrite" yaml:"loadBalancing"`
		MaxRetries     int           `env:"GALAXY_CONSOLE_MASTER_MAX_RETRIES,overwrite" yaml:"maxRetries"`
		BaseTimeout    time.Duration `env:"GALAXY_CONSOLE_MASTER_BASE_TIMEOUT,overwrite" yaml:"baseTimeout"`
		MaxBackoffTime time.Duration `env:"GALAXY_CONSOLE_MASTER_MAX_BACKOFF_TIME,overwrite" yaml:"maxBackoffTime"`
		RequestTimeout time.Duration `env:"GALAXY_CONSOLE_MASTER_REQUEST_TIMEOUT,overwrite" yaml:"requestTimeout"`
	} `yaml:"master"`

	Cache struct {
		Enabled  bool          `env:"GALAXY_CONSOLE_CACHE,overwrite" yaml:"enabled"`
		Size     int           `env:"GALAXY_CONSOLE_CACHE_SIZE,overwrite" yaml:"cacheSize"`
		TTL      time.Duration `env:"GALAXY_CONSOLE_CACHE_TTL,overwrite" yaml:"cacheTTL"`
		Compress bool          `env:"GALAXY_CONSOLE_CACHE_COMPRESS,overwrite" yaml:"compress"`
	} `yaml:"cache"`

	HTTPCache struct {
		MaxAge               time.Duration `env:"GALAXY_CONSOLE_CACHE_CONTROL_MAX_AGE,overwrite" yaml:"cacheControlMaxAge"`
		StaleWhileRevalidate time.Duration `env:"GALAXY_CONSOLE_CACHE_CONTROL_STALE_WHILE_REVALIDATE,overwrite" yaml:"cacheControlStaleWhileRevalidate"`
	} `yaml:"httpCache"`

	Store struct {
		Path string `env:"GALAXY_CONSOLE_STORE_PATH,overwrite" yaml:"path"`
	} `yaml:"store"`

	Security struct {
		// hex encoded v4.public secret key; a fresh key is generated when empty
		Secret string `env:"GALAXY_CONSOLE_SECRET" yaml:"secret"`
		CSRF   bool   `env:"GALAXY_CONSOLE_CSRF,overwrite" yaml:"csrf"`
	} `yaml:"security"`

	Instance struct {
		StartingTime      string `yaml:"-"`
		FileServerCacheID string `yaml:"-"`
		Name              string `env:"GALAXY_CONSOLE_INSTANCE_NAME,overwrite" yaml:"name"`
	} `yaml:"instance"`

	Development struct {
		InDevelopment        bool   `env:"GALAXY_CONSOLE_DEV" yaml:"inDevelopment"`
		SaveResponses        bool   `env:"GALAXY_CONSOLE_SAVE_RESPONSES,overwrite" yaml:"saveResponses"`
		ResponseSaveLocation string `env:"GALAXY_CONSOLE_RESPONSE_SAVE_LOCATION,overwrite" yaml:"responseSaveLocation"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"GALAXY_CONSOLE_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"GALAXY_CONSOLE_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"GALAXY_CONSOLE_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`

	Limiter struct {
		Enabled    bool     `env:"GALAXY_CONSOLE_LIMITER,overwrite" yaml:"enabled"`
		Rate       float64  `env:"GALAXY_CONSOLE_LIMITER_RATE,overwrite" yaml:"rate"`
		Burst      int      `env:"GALAXY_CONSOLE_LIMITER_BURST,overwrite" yaml:"burst"`
		PassIPs    []string `env:"GALAXY_CONSOLE_LIMITER_PASS_IPS,overwrite" yaml:"passList"`
		BlockIPs   []string `env:"GALAXY_CONSOLE_LIMITER_BLOCK_IPS,overwrite" yaml:"blockList"`
		IPv4Prefix int      `env:"GALAXY_CONSOLE_LIMITER_IPV4_PREFIX,overwrite" yaml:"ipv4Prefix"`
		IPv6Prefix int      `env:"GALAXY_CONSOLE_LIMITER_IPV6_PREFIX,overwrite" yaml:"ipv6Prefix"`
	} `yaml:"limiter"`
}

// LoadConfig loads the configuration from various sources.
func (cfg *ServerConfig) LoadConfig() error {
	parsedConfigFlagValue := parseCommandLineArgs()

	// Check if the -config flag was explicitly set by the user.
	configFlagUserSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagUserSet = true
		}
	})

	var configFilePath string

	// Precedence: -config flag, GALAXY_CONSOLE_CONFIGFILE, then ./config.yaml with a ./config.yml fallback.
	if configFlagUserSet {
		configFilePath = parsedConfigFlagValue
	} else if envVar := os.Getenv("GALAXY_CONSOLE_CONFIGFILE"); envVar != "" {
		configFilePath = envVar
	} else {
		configFilePath = parsedConfigFlagValue
		if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
			ymlPath := "./config.yml"
			if _, statErr := os.Stat(ymlPath); statErr == nil {
				configFilePath = ymlPath
			}
		}
	}

	cfg.SetDefaults()

	cfg.Build.load()

	cfg.Instance.FileServerCacheID = idgen.Make()
	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := loadDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()

	endpointmanager.Default = endpointmanager.New(
		cfg.Master.Endpoints,
		cfg.Master.MaxRetries,
		cfg.Master.BaseTimeout,
		cfg.Master.MaxBackoffTime,
		cfg.Master.LoadBalancing,
	)

	cfg.print()

	// Heuristically check for containerized environment and warn if host is not a wildcard address.
	if isContainerized() && cfg.Basic.UnixSocket == "" && cfg.Basic.Host != "0.0.0.0" && cfg.Basic.Host != "::" {
		log.Warn().
			Str("host", cfg.Basic.Host).
			Msg("Running in a containerized environment but host is not a wildcard address (e.g., '0.0.0.0' or '::'). This may prevent the console from being accessible outside the container.")
	}

	return nil
}

var staticSkippedPathPrefixes = []string{"/css/", "/img/", "/healthz"}

// ShouldSkipServerLogging determines if a request should bypass the logging middleware.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	for _, prefix := range staticSkippedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// isContainerized checks for common indicators of a containerized environment.
func isContainerized() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if _, err := os.Stat("/.containerenv"); err == nil {
		return true
	}

	// #nosec G304 -- well-known system file, read for heuristics only.
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err == nil {
		content := string(cgroup)

		return strings.Contains(content, "docker") ||
			strings.Contains(content, "kubepods") ||
			strings.Contains(content, "containerd") ||
			strings.Contains(content, "lxc") ||
			strings.Contains(content, "crio")
	}

	return false
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}
