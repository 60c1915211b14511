// Package migrations embeds the SQL migration files applied by
// golang-migrate's iofs source driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
