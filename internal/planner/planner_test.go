package planner

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axonops/mygrate/internal/schema"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func pkTable(name string) *schema.Table {
	tbl := schema.NewTable(name)
	id := schema.NewColumn("id", "int")
	id.Nullable = false
	id.AutoIncrement = true
	_ = tbl.AddColumn(id, schema.ColumnPositionEnd())
	_ = tbl.AddIndex(&schema.Index{Name: "PRIMARY", Columns: []string{"id"}, Type: schema.IndexPrimary})
	return tbl
}

func withFK(tbl *schema.Table, name, localCol, foreignTable string) *schema.Table {
	col := schema.NewColumn(localCol, "int")
	_ = tbl.AddColumn(col, schema.ColumnPositionEnd())
	_ = tbl.AddConstraint(schema.NewConstraint(name, foreignTable, []string{localCol}, []string{"id"}))
	return tbl
}

func TestPlan_SimpleCreate(t *testing.T) {
	to := schema.NewDatabase()
	require.NoError(t, to.AddTable(pkTable("accounts")))

	p := New(testLogger())
	result := p.Plan(nil, to)

	require.Empty(t, result.Errors1215)
	require.Len(t, result.Operations, 1)
	require.Contains(t, result.Operations[0].String(), "CREATE TABLE `accounts`")
}

func TestPlan_ColumnAddUnblocksDeferredFK(t *testing.T) {
	from := schema.NewDatabase()
	require.NoError(t, from.AddTable(pkTable("accounts")))
	require.NoError(t, from.AddTable(withFK(pkTable("tasks"), "account_id_fk", "account_id", "accounts")))

	to := schema.NewDatabase()
	require.NoError(t, to.AddTable(pkTable("accounts")))
	tasksTo := withFK(pkTable("tasks"), "account_id_fk", "account_id", "accounts")
	_ = tasksTo.AddColumn(schema.NewColumn("subject", "varchar"), schema.ColumnPositionEnd())
	_ = tasksTo.AddColumn(schema.NewColumn("repeating_task_id", "int"), schema.ColumnPositionEnd())
	_ = tasksTo.AddConstraint(schema.NewConstraint("repeating_task_id_fk", "repeating_tasks", []string{"repeating_task_id"}, []string{"id"}))
	require.NoError(t, to.AddTable(tasksTo))
	require.NoError(t, to.AddTable(pkTable("repeating_tasks")))

	p := New(testLogger())
	result := p.Plan(from, to)

	require.Empty(t, result.Errors1215)
	require.Len(t, result.Operations, 3)
	require.Contains(t, result.Operations[0].String(), "CREATE TABLE `repeating_tasks`")
	require.Contains(t, result.Operations[1].String(), "ADD `subject`")
	require.Contains(t, result.Operations[2].String(), "ADD CONSTRAINT `repeating_task_id_fk`")
}

func TestPlan_FKDropEmittedSeparatelyFromRenameAndChange(t *testing.T) {
	from := schema.NewDatabase()
	require.NoError(t, from.AddTable(pkTable("accounts")))
	tasksFrom := withFK(pkTable("tasks"), "task_id_fk", "account_id", "accounts")
	xfk := schema.NewConstraint("x_fk", "accounts", []string{"account_id"}, []string{"id"})
	xfk.OnDelete = schema.ActionCascade
	require.NoError(t, tasksFrom.AddConstraint(xfk))
	require.NoError(t, from.AddTable(tasksFrom))

	to := schema.NewDatabase()
	require.NoError(t, to.AddTable(pkTable("accounts")))
	tasksTo := pkTable("tasks")
	_ = tasksTo.AddColumn(schema.NewColumn("account_id", "int"), schema.ColumnPositionEnd())
	require.NoError(t, tasksTo.AddConstraint(schema.NewConstraint("task_id_fk_v2", "accounts", []string{"account_id"}, []string{"id"})))
	xfk2 := schema.NewConstraint("x_fk", "accounts", []string{"account_id"}, []string{"id"})
	xfk2.OnDelete = schema.ActionRestrict
	require.NoError(t, tasksTo.AddConstraint(xfk2))
	require.NoError(t, to.AddTable(tasksTo))

	p := New(testLogger())
	result := p.Plan(from, to)

	require.Empty(t, result.Errors1215)
	require.Len(t, result.Operations, 2)
	require.Equal(t, "ALTER TABLE `tasks` DROP FOREIGN KEY `task_id_fk`", result.Operations[0].String())
	second := result.Operations[1].String()
	require.Contains(t, second, "ADD CONSTRAINT `task_id_fk_v2`")
	require.Contains(t, second, "DROP FOREIGN KEY `x_fk`")
}

func TestPlan_BrokenFKProducesErrorsNoOperations(t *testing.T) {
	to := schema.NewDatabase()
	require.NoError(t, to.AddTable(withFK(pkTable("tasks"), "account_id_fk", "account_id", "accounts")))

	p := New(testLogger())
	result := p.Plan(nil, to)

	require.Empty(t, result.Operations)
	require.NotEmpty(t, result.Errors1215)
	require.Contains(t, result.Errors1215[0], "accounts")
}

func TestPlan_MutualFKCycleStripsBothSymmetrically(t *testing.T) {
	to := schema.NewDatabase()
	require.NoError(t, to.AddTable(pkTable("accounts")))

	tasks := withFK(pkTable("tasks"), "account_id_fk", "account_id", "accounts")
	_ = tasks.AddColumn(schema.NewColumn("repeating_task_id", "int"), schema.ColumnPositionEnd())
	_ = tasks.AddConstraint(schema.NewConstraint("repeating_task_id_fk", "repeating_tasks", []string{"repeating_task_id"}, []string{"id"}))
	require.NoError(t, to.AddTable(tasks))

	repeating := withFK(pkTable("repeating_tasks"), "task_id_fk", "task_id", "tasks")
	require.NoError(t, to.AddTable(repeating))

	p := New(testLogger())
	result := p.Plan(nil, to)

	require.Empty(t, result.Errors1215)
	require.Len(t, result.Operations, 5)

	require.Contains(t, result.Operations[0].String(), "CREATE TABLE `accounts`")

	create1 := result.Operations[1].String()
	create2 := result.Operations[2].String()
	require.NotContains(t, create1, "repeating_task_id_fk")
	require.NotContains(t, create2, "`task_id_fk`")

	alter1 := result.Operations[3].String()
	alter2 := result.Operations[4].String()
	require.Contains(t, alter1+alter2, "ADD CONSTRAINT `repeating_task_id_fk`")
	require.Contains(t, alter1+alter2, "ADD CONSTRAINT `task_id_fk`")
}
