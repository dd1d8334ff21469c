package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_calculation_results.sql", pg[0].name)
	assert.Contains(t, pg[0].sql, "calculation_results")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	assert.Contains(t, ch[0].sql, "category_stats")
}

func TestLoad_SortedNames(t *testing.T) {
	files, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	for i := 1; i < len(files); i++ {
		assert.Less(t, files[i-1].name, files[i].name)
	}
}

func TestEmbeddedClickhouseMigrationsSplitCleanly(t *testing.T) {
	files, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)

	for _, m := range files {
		require.NoError(t, validateNoSemicolonInStrings(m.sql), m.name)
		for _, stmt := range splitStatements(m.sql) {
			assert.False(t, strings.HasPrefix(stmt, "--"), "%s: comment left in statement", m.name)
			assert.NotContains(t, stmt, ";")
		}
	}
}

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x Int64);

CREATE TABLE b (
    y String
);
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64)", stmts[0])
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b ("))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'a''b'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b'"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/gacha")
	require.NoError(t, err)
	assert.Equal(t, "gacha", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
