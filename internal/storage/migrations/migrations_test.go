package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OrdersAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_second.sql": {Data: []byte("CREATE TABLE b (y INT);")},
		"sql/001_first.sql":  {Data: []byte("CREATE TABLE a (x INT);")},
		"sql/003_blank.sql":  {Data: []byte("  \n")},
		"sql/README.md":      {Data: []byte("not sql")},
		"sql/nested/004.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := Load(fsys, "sql")
	require.NoError(t, err)
	assert.Equal(t, []Migration{
		{Version: "001_first", SQL: "CREATE TABLE a (x INT);"},
		{Version: "002_second", SQL: "CREATE TABLE b (y INT);"},
	}, got)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load(fstest.MapFS{}, "sql")
	assert.Error(t, err)
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: "001"}, {Version: "002"}, {Version: "003"}}

	got := pending(all, map[string]struct{}{"002": {}})
	assert.Equal(t, []Migration{{Version: "001"}, {Version: "003"}}, got)

	assert.Empty(t, pending(all, map[string]struct{}{"001": {}, "002": {}, "003": {}}))
	assert.Equal(t, all, pending(all, nil))
}

func TestSplitStatements(t *testing.T) {
	input := `
-- leading comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s fine';`))
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT '';`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b';`))
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := Load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 2)
	assert.Equal(t, "001_token_records", pg[0].Version)
	assert.Equal(t, "002_token_overrides", pg[1].Version)

	ch, err := Load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, m := range ch {
		assert.NoError(t, validateNoSemicolonInStrings(m.SQL), m.Version)
		assert.NotEmpty(t, splitStatements(m.SQL), m.Version)
	}
}
