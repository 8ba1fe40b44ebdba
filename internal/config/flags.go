package config

import (
	"flag"
	"io"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     listen address (e.g. ":8080")
//	-users string user store: memory, postgres or redis
//	-sessions string session store: memory or redis
//	-d string     PostgreSQL DSN
//	-r string     Redis URL
//	-s string     signature scheme: ed25519 or secp256k1
//	-f string     JSON file of users to create at startup
//	-t duration   authentication timeout
//	-k duration   maximum client clock skew
//	-ttl duration access token lifetime
//	-m int        maximum frame size in bytes
//	-e            publish authentication events
//	-l string     log level
//
// Only the flags above are parsed; anything else in args is ignored.
func parseFlags(config *Config, args []string) error {
	args = FilterArgs(args, []string{"-a", "-users", "-sessions", "-d", "-r", "-s", "-f", "-t", "-k", "-ttl", "-m", "-e", "-l"}, "-e")

	fs := flag.NewFlagSet("keygate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.UserStore, "users", config.UserStore, "user store (memory, postgres, redis)")
	fs.StringVar(&config.SessionStore, "sessions", config.SessionStore, "session store (memory, redis)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.StringVar(&config.SignatureScheme, "s", config.SignatureScheme, "signature scheme (ed25519, secp256k1)")
	fs.StringVar(&config.UsersFile, "f", config.UsersFile, "users seed file")
	fs.DurationVar(&config.AuthTimeout, "t", config.AuthTimeout, "authentication timeout")
	fs.DurationVar(&config.MaxClockSkew, "k", config.MaxClockSkew, "maximum client clock skew")
	fs.DurationVar(&config.AccessTokenTTL, "ttl", config.AccessTokenTTL, "access token lifetime")
	fs.Int64Var(&config.MaxFrameSize, "m", config.MaxFrameSize, "maximum frame size in bytes")
	fs.BoolVar(&config.EventsEnabled, "e", config.EventsEnabled, "publish authentication events")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	return fs.Parse(args)
}
