package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/core/authenticated"
	"codeberg.org/galaxy/console/server/utils"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errUnixSocketUserDoesNotExist   = errors.New("user does not exist")
	errUnixSocketGroupDoesNotExist  = errors.New("group does not exist")
	errNoMasterEndpoint             = errors.New("no master endpoint supplied. Please supply at least one endpoint")
	errInvalidLoadBalancing         = errors.New("invalid Master.LoadBalancing value")
	errInvalidMaxRetries            = errors.New("Master.MaxRetries must be at least 1")
	errInvalidRequestTimeout        = errors.New("Master.RequestTimeout must be positive")
	errInvalidCacheSize             = errors.New("Cache.Size must be positive when the cache is enabled")
	errEmptyStorePath               = errors.New("Store.Path cannot be empty")
	errSecretInvalid                = errors.New("security.secret is not a valid paseto key")
	errInvalidLimiterRate           = errors.New("Limiter.Rate and Limiter.Burst must be positive")
	errInvalidIPv4Prefix            = errors.New("IPv4 prefix must be between 0 and 32")
	errInvalidIPv6Prefix            = errors.New("IPv6 prefix must be between 0 and 128")
)

var (
	fileModeOctalRegexp  = regexp.MustCompile(`^0?[0-7]{3}$`)
	fileModeStringRegexp = regexp.MustCompile(`^(?:[r-][w-][x-]){3}$`)
	digitsRegexp         = regexp.MustCompile(`^[0-9]+$`)
)

// Signer signs and verifies the action tokens embedded in console forms.
var Signer authenticated.Signer

// validateAndSet validates the server configuration and populates some fields.
func (cfg *ServerConfig) validateAndSet() error {
	if err := cfg.validateListener(); err != nil {
		return err
	}

	if err := cfg.validateMaster(); err != nil {
		return err
	}

	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return errInvalidCacheSize
	}

	if cfg.Store.Path == "" {
		return errEmptyStorePath
	}

	if err := cfg.loadSecret(); err != nil {
		return err
	}

	if !cfg.Limiter.Enabled {
		return nil
	}

	if cfg.Limiter.Rate <= 0 || cfg.Limiter.Burst <= 0 {
		return errInvalidLimiterRate
	}

	if cfg.Limiter.IPv4Prefix < 0 || cfg.Limiter.IPv4Prefix > 32 {
		return errInvalidIPv4Prefix
	}

	if cfg.Limiter.IPv6Prefix < 0 || cfg.Limiter.IPv6Prefix > 128 {
		return errInvalidIPv6Prefix
	}

	return nil
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = "localhost"
			log.Info().
				Str("host", cfg.Basic.Host).
				Msg("Binding to default host")
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = "8080"
			log.Info().
				Str("port", cfg.Basic.Port).
				Msg("Using default port")
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	switch {
	case cfg.Basic.RawUnixSocketPermissions == "":
		cfg.Basic.UnixSocketPermissions = 0o666
	case fileModeOctalRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		rawModeUint64, _ := strconv.ParseUint(cfg.Basic.RawUnixSocketPermissions, 8, 32)

		cfg.Basic.UnixSocketPermissions = os.FileMode(rawModeUint64)
	case fileModeStringRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		mode := os.FileMode(0)

		for i, c := range cfg.Basic.RawUnixSocketPermissions {
			if c != '-' {
				const bitsInByte = 8

				mode |= 1 << (bitsInByte - i)
			}
		}

		cfg.Basic.UnixSocketPermissions = mode
	default:
		return errUnixSocketInvalidPermissions
	}

	if cfg.Basic.UnixSocketUser != "" {
		lookup := user.Lookup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketUser) {
			lookup = user.LookupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketUser); err != nil {
			return errUnixSocketUserDoesNotExist
		}
	}

	if cfg.Basic.UnixSocketGroup != "" {
		lookup := user.LookupGroup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketGroup) {
			lookup = user.LookupGroupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketGroup); err != nil {
			return errUnixSocketGroupDoesNotExist
		}
	}

	return nil
}

func (cfg *ServerConfig) validateMaster() error {
	if len(cfg.Master.Endpoints) == 0 {
		return errNoMasterEndpoint
	}

	for i, endpoint := range cfg.Master.Endpoints {
		parsed, err := utils.ParseURL(endpoint, "master endpoint")
		if err != nil {
			return fmt.Errorf("invalid master endpoint: %w", err)
		}

		cfg.Master.Endpoints[i] = parsed.String()
	}

	switch cfg.Master.LoadBalancing {
	case RoundRobin, Random, LeastRecentlyUsed:
		// valid
	default:
		return errInvalidLoadBalancing
	}

	if cfg.Master.MaxRetries < 1 {
		return errInvalidMaxRetries
	}

	if cfg.Master.RequestTimeout <= 0 {
		return errInvalidRequestTimeout
	}

	return nil
}

// loadSecret installs the form signing key, generating an ephemeral one when none is configured.
func (cfg *ServerConfig) loadSecret() error {
	if cfg.Security.Secret == "" {
		Signer = authenticated.NewEphemeralSigner()

		if cfg.Security.CSRF {
			log.Warn().
				Msg("No security.secret configured, generated a key for this process. Forms rendered before a restart will be rejected")
		}

		return nil
	}

	if err := Signer.LoadSecretKeyFromHex(cfg.Security.Secret); err != nil {
		key := authenticated.NewSecretKeyHex()
		log.Error().Err(err).Msgf("Generated secret key (put this in config.yaml)\nsecurity:\n  secret: \"%s\"", key)

		return errSecretInvalid
	}

	// remove key. no longer needed.
	cfg.Security.Secret = ""

	return nil
}
