// Package migrations embeds the SQL schema of the user repository
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
