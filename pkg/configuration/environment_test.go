package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "OCCUPANCY_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "occupancy")
	requireMkdirAll(t, sub)
	chdir(t, sub)

	_ = os.Unsetenv("OCCUPANCY_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("OCCUPANCY_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("OCCUPANCY_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded from repo root, got %q", got)
	}
}

func TestLoad_ParsesOccupancyOptions(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))
	t.Setenv("OCCUPANCY_CONFLICT_POLICY", " Defer ")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("PORT", "8088")

	conf, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(conf.Unload)

	require.Equal(t, ConflictPolicyDefer, conf.Occupancy.ConflictPolicy)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, conf.CorsOrigins)
	require.Equal(t, "localhost:8088", conf.SocketAddress)
	require.Contains(t, conf.Database.Opts, "dbname=occupancy")
	require.NotNil(t, conf.Logger())
}

func TestLoad_RejectsUnknownConflictPolicy(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))
	t.Setenv("OCCUPANCY_CONFLICT_POLICY", "queue")

	_, err := Load(nil)
	require.ErrorContains(t, err, "OCCUPANCY_CONFLICT_POLICY")
}

func TestRateLimitOptions_Validate(t *testing.T) {
	require.NoError(t, (&RateLimitOptions{Storage: "memory"}).Validate())
	require.Error(t, (&RateLimitOptions{Storage: "redis"}).Validate())
	require.Error(t, (&RateLimitOptions{Storage: "disk"}).Validate())
	require.Error(t, (&RateLimitOptions{Storage: "memory", GlobalRPS: -1}).Validate())
}

func TestOccupancyOptions_Validate(t *testing.T) {
	opts := OccupancyOptions{AuditPageSize: 10, AuditMaxPageSize: 50, MaxBatchSize: 1}
	require.NoError(t, opts.Validate())
	require.Equal(t, ConflictPolicyReject, opts.ConflictPolicy)

	opts.AuditMaxPageSize = 5
	require.Error(t, opts.Validate())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(dir))
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
