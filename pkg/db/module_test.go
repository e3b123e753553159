package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAttachPluginsInstrumentsConnection(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, attachPlugins(conn, config.Config{DBName: "vendora"}))

	assert.Contains(t, conn.Config.Plugins, "otelgorm")
	assert.Contains(t, conn.Config.Plugins, "gorm:prometheus")
}
