package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/askbot/core/config"
)

func TestEmbeddedMigrations(t *testing.T) {
	files := listMigrationFiles(migrationsFS, migrationsDir)
	assert.Equal(t, []string{"0001_init.up.sql"}, files)

	up, err := migrationsFS.ReadFile("migrations/0001_init.up.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(up), "user_sessions")
	assert.Contains(t, string(up), "vote_tally")
}

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_init.up.sql", "0002_more.up.sql", "0003_last.up.sql"}
	assert.Equal(t, []string{"0002_more.up.sql", "0003_last.up.sql"}, selectApplied(files, 1, 3))
	assert.Empty(t, selectApplied(files, 3, 3))
	assert.Equal(t, uint64(12), parseVersion("0012_x.up.sql"))
	assert.Zero(t, parseVersion("init.sql"))
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "askbot", SSLMode: "disable"})
	assert.Equal(t, "user=bot password=pw host=db port=5432 dbname=askbot sslmode=disable", dsn)
}
