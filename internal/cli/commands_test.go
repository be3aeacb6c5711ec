package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zendesk/sqlitemaster"
	"github.com/zendesk/sqlitemaster/internal/config"
)

var fixture = []string{
	"CREATE TABLE t(x UNIQUE, y)",
	"CREATE INDEX idx_y ON t(y)",
	"CREATE TRIGGER trg AFTER INSERT ON t BEGIN SELECT 1; END",
	"CREATE VIEW v AS SELECT x FROM t",
}

// setup isolates the test from the caller's environment and
// returns the path of a fixture database.
func setup(t *testing.T) string {
	for _, env := range []string{config.EnvDatabase, config.EnvDriver, config.EnvSchema, config.EnvLogLevel} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	path := filepath.Join(dir, "test.db")
	db, err := sql.Open(config.DriverPureGo, path)
	require.NoError(t, err)
	defer db.Close()

	for _, q := range fixture {
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	var out, errOut bytes.Buffer

	cmd := newRootCmd(&options{})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func objectsIn(t *testing.T, path string, typ sqlitemaster.ObjectType) []string {
	db, err := sql.Open(config.DriverPureGo, path)
	require.NoError(t, err)
	defer db.Close()

	objects, err := sqlitemaster.ObjectsOfType(context.Background(), db, typ)
	require.NoError(t, err)

	var names []string
	for _, obj := range objects {
		names = append(names, obj.Name)
	}
	return names
}

func TestRootHelp(t *testing.T) {
	setup(t)

	out, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "sqlitemaster reads the sqlite_master catalog")
}

func TestList(t *testing.T) {
	path := setup(t)

	t.Run("JSON", func(t *testing.T) {
		out, err := run(t, "list", "--database", path, "--json")
		require.NoError(t, err)

		var got []objectView
		require.NoError(t, json.Unmarshal([]byte(out), &got))

		var names []string
		for _, v := range got {
			names = append(names, v.Name)
		}
		assert.Equal(t, []string{"idx_y", "sqlite_autoindex_t_1", "t", "trg", "v"}, names)

		auto := got[1]
		assert.Equal(t, "index", auto.Type)
		assert.Equal(t, "t", auto.Table)
		assert.True(t, auto.Internal)
		assert.Nil(t, auto.SQL)

		require.NotNil(t, got[0].SQL)
		assert.Equal(t, "CREATE INDEX idx_y ON t(y)", *got[0].SQL)
		assert.False(t, got[0].Internal)
	})

	t.Run("Type", func(t *testing.T) {
		out, err := run(t, "list", "Indexes", "-d", path, "-j")
		require.NoError(t, err)

		var got []objectView
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 2)
		for _, v := range got {
			assert.Equal(t, "index", v.Type)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := run(t, "list", "views", "-d", path, "--schema", "temp", "-j")
		require.NoError(t, err)
		assert.JSONEq(t, "[]", out)
	})

	t.Run("Table", func(t *testing.T) {
		out, err := run(t, "list", "-d", path)
		require.NoError(t, err)
		assert.Contains(t, out, "sqlite_autoindex_t_1")
		assert.Contains(t, out, "trg")
		assert.Contains(t, out, "5 objects")
	})

	t.Run("Bad Type", func(t *testing.T) {
		_, err := run(t, "list", "sequences", "-d", path)
		assert.ErrorIs(t, err, errUsage)
	})

	t.Run("Unknown Schema", func(t *testing.T) {
		_, err := run(t, "list", "-d", path, "--schema", "nope")
		assert.ErrorIs(t, err, sqlitemaster.ErrQuery)
		assert.ErrorContains(t, err, "unknown database 'nope'")
	})
}

func TestDrop(t *testing.T) {
	t.Run("All", func(t *testing.T) {
		path := setup(t)

		out, err := run(t, "drop", "all", "-d", path, "-j")
		require.NoError(t, err)

		var got struct {
			Dropped map[string]int `json:"dropped"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, map[string]int{"trigger": 1, "view": 1, "index": 1}, got.Dropped)

		assert.Equal(t, []string{"sqlite_autoindex_t_1"}, objectsIn(t, path, sqlitemaster.ObjectIndex))
		assert.Empty(t, objectsIn(t, path, sqlitemaster.ObjectTrigger))
		assert.Empty(t, objectsIn(t, path, sqlitemaster.ObjectView))
		assert.Equal(t, []string{"t"}, objectsIn(t, path, sqlitemaster.ObjectTable))

		// Nothing left to do the second time round.
		out, err = run(t, "drop", "all", "-d", path)
		require.NoError(t, err)
		assert.Equal(t, "dropped 0 trigger(s)\ndropped 0 view(s)\ndropped 0 index(s)\n", out)
	})

	t.Run("Views In Main", func(t *testing.T) {
		path := setup(t)

		out, err := run(t, "drop", "views", "-d", path, "--schema", "main")
		require.NoError(t, err)
		assert.Equal(t, "dropped 1 view(s)\n", out)

		assert.Empty(t, objectsIn(t, path, sqlitemaster.ObjectView))
		assert.Equal(t, []string{"trg"}, objectsIn(t, path, sqlitemaster.ObjectTrigger))
	})

	t.Run("Tables Rejected", func(t *testing.T) {
		path := setup(t)

		_, err := run(t, "drop", "tables", "-d", path)
		assert.ErrorIs(t, err, errUsage)
		assert.Equal(t, []string{"t"}, objectsIn(t, path, sqlitemaster.ObjectTable))
	})

	t.Run("Missing Type", func(t *testing.T) {
		path := setup(t)

		_, err := run(t, "drop", "-d", path)
		assert.Error(t, err)
	})
}

func TestSchemas(t *testing.T) {
	path := setup(t)

	out, err := run(t, "schemas", "-d", path)
	require.NoError(t, err)
	assert.Equal(t, "main\n", out)
}

// fixtureCopy creates a second fixture database next to path.
func fixtureCopy(t *testing.T, path, name string) string {
	other := filepath.Join(filepath.Dir(path), name)
	db, err := sql.Open(config.DriverPureGo, other)
	require.NoError(t, err)
	defer db.Close()

	for _, q := range fixture {
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}
	return other
}

func TestAttach(t *testing.T) {
	t.Run("Schemas", func(t *testing.T) {
		path := setup(t)
		aux := fixtureCopy(t, path, "aux.db")

		out, err := run(t, "schemas", "-d", path, "--attach", "aux="+aux)
		require.NoError(t, err)
		assert.Equal(t, "aux\nmain\n", out)
	})

	t.Run("List", func(t *testing.T) {
		path := setup(t)
		aux := fixtureCopy(t, path, "aux.db")

		out, err := run(t, "list", "triggers", "-d", path, "--attach", "aux="+aux, "--schema", "aux", "-j")
		require.NoError(t, err)

		var got []objectView
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "trg", got[0].Name)
	})

	t.Run("Drop", func(t *testing.T) {
		path := setup(t)
		aux := fixtureCopy(t, path, "aux.db")

		out, err := run(t, "drop", "views", "-d", path, "--attach", "aux="+aux, "-s", "aux")
		require.NoError(t, err)
		assert.Equal(t, "dropped 1 view(s)\n", out)

		assert.Empty(t, objectsIn(t, aux, sqlitemaster.ObjectView))
		assert.Equal(t, []string{"v"}, objectsIn(t, path, sqlitemaster.ObjectView))
	})

	t.Run("Config File", func(t *testing.T) {
		path := setup(t)
		aux := fixtureCopy(t, path, "aux.db")

		cfgPath := filepath.Join(filepath.Dir(path), "config.yaml")
		cfg := "database: " + path + "\nschema: aux\nattach:\n  aux: " + aux + "\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

		out, err := run(t, "drop", "indexes", "--config", cfgPath)
		require.NoError(t, err)
		assert.Equal(t, "dropped 1 index(s)\n", out)

		assert.Equal(t, []string{"sqlite_autoindex_t_1"}, objectsIn(t, aux, sqlitemaster.ObjectIndex))
		assert.Len(t, objectsIn(t, path, sqlitemaster.ObjectIndex), 2)
	})

	t.Run("Without Attach", func(t *testing.T) {
		path := setup(t)

		_, err := run(t, "list", "-d", path, "--schema", "aux")
		assert.ErrorIs(t, err, sqlitemaster.ErrQuery)
	})

	t.Run("Reserved Name", func(t *testing.T) {
		path := setup(t)

		_, err := run(t, "list", "-d", path, "--attach", "temp="+path)
		assert.ErrorContains(t, err, `attach: "temp" is reserved`)
	})
}

func TestConfigResolution(t *testing.T) {
	t.Run("Config File", func(t *testing.T) {
		path := setup(t)

		cfgPath := filepath.Join(filepath.Dir(path), "config.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("database: "+path+"\ndriver: sqlite3\n"), 0o600))

		out, err := run(t, "list", "triggers", "--config", cfgPath, "-j")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "trg"`)
	})

	t.Run("Environment", func(t *testing.T) {
		path := setup(t)
		t.Setenv(config.EnvDatabase, path)

		out, err := run(t, "list", "views", "-j")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "v"`)
	})

	t.Run("Flag Beats Environment", func(t *testing.T) {
		path := setup(t)
		t.Setenv(config.EnvDatabase, filepath.Join(filepath.Dir(path), "missing", "other.db"))

		_, err := run(t, "list", "-d", path, "-j")
		require.NoError(t, err)
	})

	t.Run("Missing Database", func(t *testing.T) {
		setup(t)

		_, err := run(t, "list")
		assert.ErrorContains(t, err, "invalid configuration: database is required")
	})

	t.Run("Bad Driver", func(t *testing.T) {
		path := setup(t)

		_, err := run(t, "list", "-d", path, "--driver", "postgres")
		assert.ErrorContains(t, err, "invalid configuration")
	})
}

func TestDebugLogging(t *testing.T) {
	path := setup(t)

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&options{})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"drop", "indexes", "-d", path, "--log-level", "debug"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "opened database")
	assert.Contains(t, errOut.String(), "dropping schema object")
	assert.Contains(t, errOut.String(), "idx_y")
}
