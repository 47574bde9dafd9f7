package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "API_KEY", "SHUTDOWN_TIMEOUT",
	"STORE_DRIVER", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"MAX_JOBS", "JOB_RETENTION", "PACING_DELAY",
	"REQUEST_TIMEOUT", "CODEFORCES_URL", "LEETCODE_URL", "CODECHEF_URL", "CODEFORCES_SUBMISSION_COUNT",
	"S3_BUCKET", "S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY",
}

// isolate runs the test from an empty directory with every config variable
// cleared, and points CONFIG_PATH at path inside it.
func isolate(t *testing.T, yamlBody string) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	path := filepath.Join(dir, "config.yaml")
	if yamlBody != "" {
		require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Server.APIKey)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, DefaultMaxJobs, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, DefaultJobRetention, cfg.Jobs.Retention)
	assert.Equal(t, DefaultPacingDelay, cfg.Jobs.PacingDelay)
	assert.Equal(t, DefaultRequestTimeout, cfg.Platforms.RequestTimeout)
	assert.Equal(t, DefaultCodeforcesURL, cfg.Platforms.CodeforcesURL)
	assert.Equal(t, DefaultCFSubmissionCount, cfg.Platforms.CodeforcesSubmission)
	assert.Equal(t, DefaultS3Region, cfg.Archive.Region)
	assert.Empty(t, cfg.Archive.Bucket)
}

func TestLoad_YAMLFile(t *testing.T) {
	isolate(t, `
server:
  port: "9090"
  api_key: file-key
store:
  driver: redis
  redis_addr: cache:6379
jobs:
  max_concurrent: 2
  pacing_delay: 250ms
platforms:
  leetcode_url: http://lc.local
archive:
  bucket: reports
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file-key", cfg.Server.APIKey)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 2, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, 250*time.Millisecond, cfg.Jobs.PacingDelay)
	assert.Equal(t, "http://lc.local", cfg.Platforms.LeetCodeURL)
	assert.Equal(t, "reports", cfg.Archive.Bucket)
}

func TestLoad_ExplicitZeroInFileIsKept(t *testing.T) {
	isolate(t, `
store:
  redis_db: 0
jobs:
  pacing_delay: 0s
  retention: 0s
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Jobs.PacingDelay)
	assert.Zero(t, cfg.Jobs.Retention)
	assert.Zero(t, cfg.Store.RedisDB)
	assert.Equal(t, DefaultMaxJobs, cfg.Jobs.MaxConcurrent)
}

func TestLoad_ZeroMaxJobsInFileIsRejected(t *testing.T) {
	isolate(t, "jobs:\n  max_concurrent: 0\n")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t, "server:\n  port: \"9090\"\njobs:\n  max_concurrent: 2\n")
	t.Setenv("PORT", "7000")
	t.Setenv("MAX_JOBS", "8")
	t.Setenv("JOB_RETENTION", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, time.Hour, cfg.Jobs.Retention)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t, "")
	require.NoError(t, os.WriteFile(".env", []byte("API_KEY=from-dotenv\n"), 0o644))
	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv("API_KEY"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Server.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "sqlite"}},
		{name: "postgres without url", env: map[string]string{"STORE_DRIVER": "postgres"}},
		{name: "bad max jobs", env: map[string]string{"MAX_JOBS": "many"}},
		{name: "negative max jobs", env: map[string]string{"MAX_JOBS": "-1"}},
		{name: "bad duration", env: map[string]string{"PACING_DELAY": "soon"}},
		{name: "bad yaml", yaml: "server: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t, tt.yaml)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PostgresWithURL(t *testing.T) {
	isolate(t, "")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/tracker")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/tracker", cfg.Store.DatabaseURL)
}
