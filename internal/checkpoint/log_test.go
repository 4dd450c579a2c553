package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PubmedLoader/internal/domain"
)

func TestLoadMissingLogIsEmpty(t *testing.T) {
	t.Parallel()

	done, err := Load(filepath.Join(t.TempDir(), "processed_files.txt"))
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestAppendThenLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_files.txt")
	log, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, log.Append(domain.CheckpointEntry{Filename: "baseline/pubmed25n0001.xml.gz", ArticleCount: 3}, "Baseline: 3 Articles/sec: 1.50"))
	require.NoError(t, log.Append(domain.CheckpointEntry{Filename: "updatefiles/pubmed25n1300.xml.gz"}, ""))
	require.NoError(t, log.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "baseline/pubmed25n0001.xml.gz\n# Baseline: 3 Articles/sec: 1.50\nupdatefiles/pubmed25n1300.xml.gz\n", string(raw))

	done, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{
		"baseline/pubmed25n0001.xml.gz":    {},
		"updatefiles/pubmed25n1300.xml.gz": {},
	}, done)
}

func TestAppendRejectsMultilineFilename(t *testing.T) {
	t.Parallel()

	log, err := Open(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	defer log.Close()

	assert.Error(t, log.Append(domain.CheckpointEntry{Filename: "a\nb"}, ""))
	assert.Error(t, log.Append(domain.CheckpointEntry{Filename: " "}, ""))
}

func TestLoadUnreadableLog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)
}
