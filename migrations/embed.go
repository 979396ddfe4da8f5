// Package migrations embeds the bridge's SQL migrations into the binary and
// registers them with the database package. Import it for side effects.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
