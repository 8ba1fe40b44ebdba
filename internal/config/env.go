package config

import (
	"fmt"
	"strconv"
	"time"
)

// parseEnv overlays KEYGATE_* variables. REDIS_URL and DATABASE_URL are
// honoured as well, with the KEYGATE_ names taking precedence.
func parseEnv(config *Config, lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		return nil
	}

	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookupEnv(name); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, name string) error {
		v, ok := lookupEnv(name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	str(&config.ListenAddr, "KEYGATE_LISTEN_ADDR")
	str(&config.UserStore, "KEYGATE_USER_STORE")
	str(&config.SessionStore, "KEYGATE_SESSION_STORE")
	str(&config.DatabaseDSN, "KEYGATE_DATABASE_DSN", "DATABASE_URL")
	str(&config.RedisURL, "KEYGATE_REDIS_URL", "REDIS_URL")
	str(&config.SignatureScheme, "KEYGATE_SIGNATURE_SCHEME")
	str(&config.TokenIssuer, "KEYGATE_TOKEN_ISSUER")
	str(&config.UsersFile, "KEYGATE_USERS_FILE")
	str(&config.LogLevel, "KEYGATE_LOG_LEVEL")

	for name, dst := range map[string]*time.Duration{
		"KEYGATE_AUTH_TIMEOUT":     &config.AuthTimeout,
		"KEYGATE_MAX_CLOCK_SKEW":   &config.MaxClockSkew,
		"KEYGATE_ACCESS_TOKEN_TTL": &config.AccessTokenTTL,
		"KEYGATE_WRITE_TIMEOUT":    &config.WriteTimeout,
		"KEYGATE_PONG_WAIT":        &config.PongWait,
	} {
		if err := dur(dst, name); err != nil {
			return err
		}
	}

	if v, ok := lookupEnv("KEYGATE_MAX_FRAME_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid KEYGATE_MAX_FRAME_SIZE: %w", err)
		}
		config.MaxFrameSize = n
	}
	if v, ok := lookupEnv("KEYGATE_EVENTS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid KEYGATE_EVENTS_ENABLED: %w", err)
		}
		config.EventsEnabled = b
	}

	return nil
}
