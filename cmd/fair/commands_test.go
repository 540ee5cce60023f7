package main

import (
	"bytes"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/common"
	"fair-bot/internal/config"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "fair", cmd.Use)

	for _, name := range []string{"run", "migrate", "hash-password"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestHashPassword(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-password", "секрет"})

	require.NoError(t, cmd.Execute())

	hash := bytes.TrimSpace(out.Bytes())
	require.NoError(t, common.ValidateHash(string(hash)))
	assert.True(t, common.VerifyPassword("секрет", string(hash)))
}

func TestHashPasswordNeedsArgument(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"hash-password"})

	assert.Error(t, cmd.Execute())
}

func TestMigrateSQLite(t *testing.T) {
	t.Setenv("ADMIN_IDS", "1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "fair.db"))
	t.Setenv("APP_LOG_LEVEL", "warn")
	t.Cleanup(func() { log.SetLevel(log.InfoLevel) })

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, log.WarnLevel, log.GetLevel())
}

func TestApplyLogConfigWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fair.log")
	t.Cleanup(setupLogging)

	applyLogConfig(&config.Config{AppLogLevel: "info", LogFile: path})
	log.Info("проверка")

	assert.FileExists(t, path)
}
