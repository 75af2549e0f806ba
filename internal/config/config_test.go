package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func setRequired(t *testing.T) {
	t.Setenv("NFE_GESTOR_DB_HOST", "db.local")
	t.Setenv("NFE_GESTOR_DB_USER", "nfe")
	t.Setenv("NFE_GESTOR_DB_NAME", "nfe_gestor")
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, int64(10<<20), cfg.MaxXMLBytes)
	assert.False(t, cfg.Queue.Enabled())
	assert.False(t, cfg.S3.Enabled())
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, filepath.Join(cfg.ProjectDir, "incoming"), cfg.IncomingDir)
	assert.Len(t, cfg.PipelineDirs(), 6)
}

func TestLoadReportsAllMissing(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NFE_GESTOR_DB_HOST", "")
	t.Setenv("NFE_GESTOR_DB_USER", "")
	t.Setenv("NFE_GESTOR_DB_NAME", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NFE_GESTOR_DB_HOST")
	assert.Contains(t, err.Error(), "NFE_GESTOR_DB_USER")
	assert.Contains(t, err.Error(), "NFE_GESTOR_DB_NAME")
}

func TestLoadInvalidInt(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)
	t.Setenv("NFE_GESTOR_DB_PORT", "cinco")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NFE_GESTOR_DB_PORT inválido")
}

func TestLoadXSDRequiresMain(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)
	t.Setenv("NFE_XSD_ENABLED", "true")
	t.Setenv("NFE_XSD_DIR", "/opt/xsd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NFE_XSD_MAIN")
}

func TestLoadAbsoluteDirsAndQueue(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)
	t.Setenv("INCOMING_DIR", "/var/nfe/in")
	t.Setenv("NFE_GESTOR_QUEUE_BACKEND", "RabbitMQ")
	t.Setenv("NFE_GESTOR_S3_ENDPOINT", "https://proj.supabase.co/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/nfe/in", cfg.IncomingDir)
	assert.True(t, cfg.Queue.Enabled())
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "https://proj.supabase.co", cfg.S3.Endpoint)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "h", DBPort: 5432, DBUser: "u", DBName: "app", DBSSLMode: "disable"}

	assert.Equal(t, "host=h port=5432 user=u dbname=app sslmode=disable", cfg.AppDSN())
	assert.Equal(t, "host=h port=5432 user=u dbname=postgres sslmode=disable", cfg.AdminDSN())

	cfg.DBPass = "segredo"
	assert.Equal(t, "host=h port=5432 user=u dbname=app sslmode=disable password=segredo", cfg.AppDSN())
}
