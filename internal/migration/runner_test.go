package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE INDEX a ON cities (country);

  -- second
CREATE INDEX b
    ON cities (population DESC);
`
	assert.Equal(t, []string{
		"CREATE INDEX a ON cities (country)",
		"CREATE INDEX b ON cities (population DESC)",
	}, SplitStatements(sql))
	assert.Empty(t, SplitStatements("-- only comments\n\n"))
}

func TestRemoveComments(t *testing.T) {
	assert.Equal(t, "SELECT 1;\n  SELECT $$x$$;", RemoveComments("-- c\nSELECT 1;\n  -- d\n  SELECT $$x$$;"))
}

func TestSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	files, err := SQLFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)

	_, err = SQLFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestShippedMigrationsParse(t *testing.T) {
	files, err := SQLFiles("../../migrations")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join("../../migrations", name))
		require.NoError(t, err)
		assert.NotEmpty(t, SplitStatements(string(content)), name)
	}
}
