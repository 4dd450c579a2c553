package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, dataDirEnv, processorsEnv, databaseDSNEnv, openSearchEnv, checkpointEnv,
		logLevelEnv, s3BucketEnv, awsRegionEnv, awsEndpointEnv, metricsAddrEnv,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, CorpusLocal, cfg.Corpus.Driver)
	assert.Equal(t, SinkPostgres, cfg.Sink.Driver)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers.Count)
	assert.Equal(t, "processed_files.log", cfg.Checkpoint.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "loader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: warn
corpus:
  driver: s3
  bucket: pubmed-mirror
  prefix: ftp/
workers:
  count: 3
  reportInterval: 30s
sink:
  driver: opensearch
  index: articles
scheduler:
  interval: 6h
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(processorsEnv, "12")
	t.Setenv(openSearchEnv, "http://search:9200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, CorpusS3, cfg.Corpus.Driver)
	assert.Equal(t, "pubmed-mirror", cfg.Corpus.Bucket)
	assert.Equal(t, "us-east-1", cfg.Corpus.Region)
	assert.Equal(t, 12, cfg.Workers.Count)
	assert.Equal(t, 30*time.Second, cfg.Workers.ReportInterval)
	assert.Equal(t, "http://search:9200", cfg.Sink.URL)
	assert.Equal(t, "articles", cfg.Sink.Index)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv(processorsEnv, "many")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := defaultConfig()
	cfg.Corpus.Driver = "ftp"
	cfg.Sink.Driver = SinkOpenSearch
	cfg.Sink.URL = ""
	cfg.Workers.Count = 0
	cfg.Checkpoint.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown corpus driver "ftp"`)
	assert.Contains(t, err.Error(), "sink.url is required")
	assert.Contains(t, err.Error(), "workers.count must be positive")
	assert.Contains(t, err.Error(), "checkpoint.path is required")
}
