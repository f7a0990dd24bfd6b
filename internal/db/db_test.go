package db

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoice-totals/internal/config"
	"github.com/diewo77/invoice-totals/internal/models"
)

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  'postgres://u:p@h:5432/db?sslmode=require'  ", "postgres://u:p@h:5432/db?sslmode=require"},
		{"host=h   user=u dbname=d", "host=h user=u dbname=d sslmode=disable"},
		{"host=h user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDSN(tt.in), "NormalizeDSN(%q)", tt.in)
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://u:xxxxx@h/d", Redact("postgres://u:secret@h/d"))
	assert.Equal(t, "host=h password=xxxxx dbname=d", Redact("host=h password=secret dbname=d"))
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSNRaw: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}
	conn, err := Open(cfg, log)
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	for _, m := range []any{&models.Client{}, &models.Invoice{}, &models.InvoiceItem{}, &models.CreditNote{}, &models.CreditNoteItem{}} {
		assert.True(t, conn.Migrator().HasTable(m), "%T table", m)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, logrus.New())
	assert.Error(t, err)
}

func TestOpenRetryLogsRedactedDSN(t *testing.T) {
	backoff := connectBackoff
	connectBackoff = 0
	t.Cleanup(func() { connectBackoff = backoff })

	log, hook := test.NewNullLogger()
	cfg := config.DatabaseConfig{
		Driver: "postgres",
		DSNRaw: "host=127.0.0.1 port=1 user=u password=secret dbname=d connect_timeout=1",
	}
	_, err := Open(cfg, log)
	require.Error(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, connectAttempts)
	for _, e := range entries {
		assert.Equal(t, logrus.WarnLevel, e.Level)
		dsn, _ := e.Data["dsn"].(string)
		assert.Contains(t, dsn, "password=xxxxx")
		assert.NotContains(t, dsn, "secret")
	}
}
