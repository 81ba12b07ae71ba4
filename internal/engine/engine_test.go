package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beedb-project/beedb/config"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine-test.db")
	db, err := Open(path, config.Default())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionCreateInsertSelect(t *testing.T) {
	db := newTestDatabase(t)
	sess := db.NewSession()

	_, err := sess.Exec("CREATE TABLE widgets (id INT, name CHAR(16))")
	require.NoError(t, err)
	_, err = sess.Exec("INSERT INTO widgets VALUES (1, 'gizmo'), (2, 'gadget')")
	require.NoError(t, err)

	res, err := sess.Exec("SELECT id, name FROM widgets WHERE id = 2")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, res.Columns)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "gadget", res.Rows[0][1])
}

func TestSessionUpdateReportsTouchedRows(t *testing.T) {
	db := newTestDatabase(t)
	sess := db.NewSession()

	_, err := sess.Exec("CREATE TABLE counters (id INT, n INT)")
	require.NoError(t, err)
	_, err = sess.Exec("INSERT INTO counters VALUES (1, 10)")
	require.NoError(t, err)

	res, err := sess.Exec("UPDATE counters SET n = n + 1 WHERE id = 1")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	sel, err := sess.Exec("SELECT n FROM counters WHERE id = 1")
	require.NoError(t, err)
	require.Equal(t, int32(11), sel.Rows[0][0])
}

func TestSessionExplicitTransactionCommit(t *testing.T) {
	db := newTestDatabase(t)
	sess := db.NewSession()

	_, err := sess.Exec("CREATE TABLE t (id INT)")
	require.NoError(t, err)
	_, err = sess.Exec("BEGIN")
	require.NoError(t, err)
	_, err = sess.Exec("INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	_, err = sess.Exec("COMMIT")
	require.NoError(t, err)

	res, err := sess.Exec("SELECT id FROM t")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

func TestSessionExplicitTransactionAbortDiscardsWrites(t *testing.T) {
	db := newTestDatabase(t)
	sess := db.NewSession()

	_, err := sess.Exec("CREATE TABLE t (id INT)")
	require.NoError(t, err)
	_, err = sess.Exec("BEGIN")
	require.NoError(t, err)
	_, err = sess.Exec("INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	_, err = sess.Exec("ABORT")
	require.NoError(t, err)

	res, err := sess.Exec("SELECT id FROM t")
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestSessionDoubleBeginRejected(t *testing.T) {
	db := newTestDatabase(t)
	sess := db.NewSession()
	_, err := sess.Exec("BEGIN")
	require.NoError(t, err)
	_, err = sess.Exec("BEGIN")
	require.Error(t, err)
}

func TestOptimizationDisableStillExecutesCorrectly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noopt.db")
	cfg := config.Default()
	cfg.OptimizationDisable = true
	db, err := Open(path, cfg)
	require.NoError(t, err)
	defer db.Close()

	sess := db.NewSession()
	_, err = sess.Exec("CREATE TABLE t (id INT)")
	require.NoError(t, err)
	_, err = sess.Exec("INSERT INTO t VALUES (1), (2), (3)")
	require.NoError(t, err)

	res, err := sess.Exec("SELECT id FROM t WHERE id > 1")
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.db")
	cfg := config.Default()
	cfg.PageSize = 100
	_, err := Open(path, cfg)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	require.Error(t, statErr, "expected no file to be created for a rejected config")
}
