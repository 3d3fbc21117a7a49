package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/gateway"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, backend.KindSQLite, cfg.Database.Kind)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bomcat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  kind: postgres
  dsn: "host=db user=bomcat dbname=catalog"
listen: "0.0.0.0:9000"
log_level: debug
users:
  viewer:
    password_sha256: `+gateway.HashPassword("secret")+`
    role: ro
  editor:
    password_sha256: `+gateway.HashPassword("secret2")+`
    role: rw
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, backend.KindPostgres, cfg.Database.Kind)
	require.Equal(t, "0.0.0.0:9000", cfg.Listen)
	require.Equal(t, gateway.RoleReadOnly, cfg.Users["viewer"].Role)
	require.Equal(t, gateway.RoleReadWrite, cfg.Users["editor"].Role)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOMCAT_DB_KIND", "mysql")
	t.Setenv("BOMCAT_DB_DSN", "bomcat:pw@tcp(db:3306)/catalog")
	t.Setenv("BOMCAT_LISTEN", "127.0.0.1:7000")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, backend.KindMySQL, cfg.Database.Kind)
	require.Equal(t, "bomcat:pw@tcp(db:3306)/catalog", cfg.Database.DSN)
	require.Equal(t, "127.0.0.1:7000", cfg.Listen)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("BOMCAT_DB_KIND", "dbase3")
	_, err := Load("")
	require.Error(t, err)
	t.Setenv("BOMCAT_DB_KIND", "sqlite")

	t.Setenv("BOMCAT_LOG_LEVEL", "loud")
	_, err = Load("")
	require.Error(t, err)
	t.Setenv("BOMCAT_LOG_LEVEL", "info")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  hacker:
    password_sha256: short
    role: rw
`), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}
