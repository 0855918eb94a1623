package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/copy?sslmode=disable",
		DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "copy"}))
	assert.Equal(t, "postgres://u:p@db:6543/copy?sslmode=require",
		DSN(ClientConfig{Host: "db", Port: 6543, User: "u", Password: "p", Database: "copy", SSLMode: "require"}))
	assert.Equal(t, "postgres://override", DSN(ClientConfig{DSN: "postgres://override", Host: "ignored"}))
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_records.sql", names[0])
	assert.IsNonDecreasing(t, names)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	client := setupTestDB(t)

	applied, err := client.RunMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied, "second run applies nothing")
}
