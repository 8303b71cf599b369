package db

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booklibrary/internal/model"
)

func TestMissingRowIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	gormDB, err := NewSQLite(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(gormDB))

	var book model.Book
	err = gormDB.WithContext(context.Background()).First(&book, 99999).Error
	require.Error(t, err)

	assert.NotContains(t, buf.String(), "record not found")
}
