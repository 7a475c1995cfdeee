package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/questbank/internal/config"
	"github.com/ashwinyue/questbank/internal/model"
)

func TestNew_SQLite(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "questbank.db"),
		},
	}

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	assert.NoError(t, db.Ping(context.Background()))

	for _, m := range model.AllModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "oracle"}}

	_, err := New(cfg)
	assert.Error(t, err)
}
