package modelstore

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

// Migrations mirrors the teacher's server/configdb/migrations.go shape:
// plain forward-only SQL migrations numbered by idx.
func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE model(
			model_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			version TEXT,
			date TEXT,
			task TEXT NOT NULL,
			function_name TEXT NOT NULL,
			post_process_so TEXT NOT NULL,
			labels TEXT NOT NULL,
			num_keypoints INT NOT NULL DEFAULT 0,
			description TEXT,
			hef_path TEXT NOT NULL,
			usage_count INT NOT NULL DEFAULT 0,
			registered_at INT NOT NULL
		);
	`))

	return migs
}
