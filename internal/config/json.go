package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Duration unmarshals from a string such as "30s" or an integer of nanoseconds
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// JsonConfig is the shape of the JSON config file. Absent fields leave the
// current value untouched, hence the pointers.
type JsonConfig struct {
	ListenAddr      *string   `json:"listen_addr"`
	UserStore       *string   `json:"user_store"`
	SessionStore    *string   `json:"session_store"`
	DatabaseDSN     *string   `json:"database_dsn"`
	RedisURL        *string   `json:"redis_url"`
	SignatureScheme *string   `json:"signature_scheme"`
	TokenIssuer     *string   `json:"token_issuer"`
	AuthTimeout     *Duration `json:"auth_timeout"`
	MaxClockSkew    *Duration `json:"max_clock_skew"`
	AccessTokenTTL  *Duration `json:"access_token_ttl"`
	WriteTimeout    *Duration `json:"write_timeout"`
	PongWait        *Duration `json:"pong_wait"`
	MaxFrameSize    *int64    `json:"max_frame_size"`
	EventsEnabled   *bool     `json:"events_enabled"`
	UsersFile       *string   `json:"users_file"`
	LogLevel        *string   `json:"log_level"`
}

// parseJson loads the file named by -c/-config, if any, over config
func parseJson(config *Config, args []string) error {
	path := jsonConfigFlag(args)

	// nothing to load
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.UserStore, c.UserStore)
	setString(&config.SessionStore, c.SessionStore)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.SignatureScheme, c.SignatureScheme)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setDuration(&config.AuthTimeout, c.AuthTimeout)
	setDuration(&config.MaxClockSkew, c.MaxClockSkew)
	setDuration(&config.AccessTokenTTL, c.AccessTokenTTL)
	setDuration(&config.WriteTimeout, c.WriteTimeout)
	setDuration(&config.PongWait, c.PongWait)
	if c.MaxFrameSize != nil {
		config.MaxFrameSize = *c.MaxFrameSize
	}
	if c.EventsEnabled != nil {
		config.EventsEnabled = *c.EventsEnabled
	}
	setString(&config.UsersFile, c.UsersFile)
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
