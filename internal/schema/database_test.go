package schema

import "testing"

func accountsTable() *Table {
	tbl := NewTable("accounts")
	id := NewColumn("id", "int")
	id.Nullable = false
	id.AutoIncrement = true
	_ = tbl.AddColumn(id, ColumnPositionEnd())
	_ = tbl.AddIndex(&Index{Name: "PRIMARY", Columns: []string{"id"}, Type: IndexPrimary})
	return tbl
}

func tasksTable(withFK bool) *Table {
	tbl := NewTable("tasks")
	id := NewColumn("id", "int")
	id.Nullable = false
	id.AutoIncrement = true
	_ = tbl.AddColumn(id, ColumnPositionEnd())
	accountID := NewColumn("account_id", "int")
	accountID.Nullable = false
	_ = tbl.AddColumn(accountID, ColumnPositionEnd())
	_ = tbl.AddIndex(&Index{Name: "PRIMARY", Columns: []string{"id"}, Type: IndexPrimary})
	if withFK {
		_ = tbl.AddIndex(NewIndex("account_id_idx", "account_id"))
		_ = tbl.AddConstraint(NewConstraint("account_id_fk", "accounts", []string{"account_id"}, []string{"id"}))
	}
	return tbl
}

func TestDatabase_UnfulfilledFKs_MissingTable(t *testing.T) {
	db := NewDatabase()
	tbl := tasksTable(true)
	got := db.UnfulfilledFKs(tbl)
	if len(got) != 1 {
		t.Fatalf("expected 1 unfulfilled FK, got %d", len(got))
	}
	if _, ok := got["account_id_fk"]; !ok {
		t.Errorf("expected account_id_fk to be unfulfilled, got %v", got)
	}
}

func TestDatabase_UnfulfilledFKs_Satisfiable(t *testing.T) {
	db := NewDatabase()
	_ = db.AddTable(accountsTable())
	tbl := tasksTable(true)
	got := db.UnfulfilledFKs(tbl)
	if len(got) != 0 {
		t.Fatalf("expected no unfulfilled FKs once accounts exists, got %v", got)
	}
}

func TestDatabase_UnfulfilledFKs_MissingIndex(t *testing.T) {
	db := NewDatabase()
	accounts := NewTable("accounts")
	id := NewColumn("id", "int")
	id.Nullable = false
	_ = accounts.AddColumn(id, ColumnPositionEnd())
	_ = db.AddTable(accounts)

	tbl := NewTable("tasks")
	accountID := NewColumn("account_id", "int")
	accountID.Nullable = false
	_ = tbl.AddColumn(accountID, ColumnPositionEnd())
	_ = tbl.AddConstraint(NewConstraint("account_id_fk", "accounts", []string{"account_id"}, []string{"id"}))

	got := db.UnfulfilledFKs(tbl)
	if len(got) != 1 {
		t.Fatalf("expected the FK to a reachable but unindexed column to be unfulfilled, got %v", got)
	}
}

func TestDatabase_DiffTableNames(t *testing.T) {
	source := NewDatabase()
	_ = source.AddTable(accountsTable())
	_ = source.AddTable(tasksTable(false))

	target := NewDatabase()
	_ = target.AddTable(accountsTable())
	repeating := NewTable("repeating_tasks")
	_ = target.AddTable(repeating)

	added, removed, overlap := source.DiffTableNames(target)
	if len(added) != 1 || added[0] != "repeating_tasks" {
		t.Errorf("added = %v, want [repeating_tasks]", added)
	}
	if len(removed) != 1 || removed[0] != "tasks" {
		t.Errorf("removed = %v, want [tasks]", removed)
	}
	if len(overlap) != 1 || overlap[0] != "accounts" {
		t.Errorf("overlap = %v, want [accounts]", overlap)
	}
}
