package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/tripbot/core/config"
	"github.com/m3rciful/tripbot/migrations"
)

func TestListMigrationFilesSkipsDownAndDirs(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {},
		"000001_a.up.sql":   {},
		"000001_a.down.sql": {},
		"nested/x.up.sql":   {},
	}
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, listMigrationFiles(fsys))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files := listMigrationFiles(migrations.FS)
	assert.Contains(t, files, "000001_user_records.up.sql")
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}
	assert.Equal(t, []string{"000002_b.up.sql", "000003_c.up.sql"}, selectApplied(files, 1, 3))
	assert.Nil(t, selectApplied(files, 3, 3))
	assert.Equal(t, uint64(0), parseVersion("readme.md"))
}

func TestConnectionStrings(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", Name: "trips", SSLMode: "disable"}
	assert.Equal(t, "user=u password=p host=h port=5432 dbname=trips sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://u:p@h:5432/trips?sslmode=disable", URL(cfg))
}
