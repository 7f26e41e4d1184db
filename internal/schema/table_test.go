package schema

import "testing"

func newIntPK(name string) *Table {
	t := NewTable(name)
	id := NewColumn("id", "int")
	id.Nullable = false
	id.AutoIncrement = true
	_ = t.AddColumn(id, ColumnPositionEnd())
	_ = t.AddIndex(&Index{Name: "PRIMARY", Columns: []string{"id"}, Type: IndexPrimary})
	return t
}

func TestTable_AddColumn_Positions(t *testing.T) {
	tbl := NewTable("accounts")
	a := NewColumn("a", "int")
	b := NewColumn("b", "int")
	c := NewColumn("c", "int")

	if err := tbl.AddColumn(a, ColumnPositionEnd()); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := tbl.AddColumn(c, ColumnPositionEnd()); err != nil {
		t.Fatalf("add c: %v", err)
	}
	if err := tbl.AddColumn(b, ColumnPositionAfter("a")); err != nil {
		t.Fatalf("add b after a: %v", err)
	}

	got := tbl.Columns()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d columns, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("position %d: got %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestTable_AddColumn_DuplicateName(t *testing.T) {
	tbl := NewTable("accounts")
	_ = tbl.AddColumn(NewColumn("a", "int"), ColumnPositionEnd())
	if err := tbl.AddColumn(NewColumn("a", "varchar"), ColumnPositionEnd()); err == nil {
		t.Error("expected error adding a duplicate column, got nil")
	}
}

func TestTable_ColumnBefore(t *testing.T) {
	tbl := NewTable("accounts")
	_ = tbl.AddColumn(NewColumn("a", "int"), ColumnPositionEnd())
	_ = tbl.AddColumn(NewColumn("b", "int"), ColumnPositionEnd())

	pos, err := tbl.ColumnBefore("a")
	if err != nil {
		t.Fatalf("ColumnBefore(a): %v", err)
	}
	if !pos.IsFirst() {
		t.Error("expected a's predecessor position to be FIRST")
	}

	pos, err = tbl.ColumnBefore("b")
	if err != nil {
		t.Fatalf("ColumnBefore(b): %v", err)
	}
	after, ok := pos.AfterName()
	if !ok || after != "a" {
		t.Errorf("expected b to be AFTER a, got after=%q ok=%v", after, ok)
	}
}

func TestTable_DiffColumns(t *testing.T) {
	source := NewTable("accounts")
	_ = source.AddColumn(NewColumn("id", "int"), ColumnPositionEnd())
	_ = source.AddColumn(NewColumn("name", "varchar"), ColumnPositionEnd())

	target := NewTable("accounts")
	_ = target.AddColumn(NewColumn("id", "int"), ColumnPositionEnd())
	subject := NewColumn("subject", "varchar")
	subject.Nullable = false
	_ = target.AddColumn(subject, ColumnPositionEnd())

	added, removed, overlap := source.DiffColumns(target)
	if len(added) != 1 || added[0] != "subject" {
		t.Errorf("added = %v, want [subject]", added)
	}
	if len(removed) != 1 || removed[0] != "name" {
		t.Errorf("removed = %v, want [name]", removed)
	}
	if len(overlap) != 1 || overlap[0] != "id" {
		t.Errorf("overlap = %v, want [id]", overlap)
	}
}

func TestTable_ColumnIsIndexed(t *testing.T) {
	tbl := newIntPK("accounts")
	if !tbl.ColumnIsIndexed("id") {
		t.Error("expected id to be indexed via PRIMARY")
	}
	if tbl.ColumnIsIndexed("missing") {
		t.Error("expected missing column to report unindexed")
	}

	_ = tbl.AddColumn(NewColumn("email", "varchar"), ColumnPositionEnd())
	_ = tbl.AddIndex(NewIndex("email_idx", "email"))
	if !tbl.ColumnIsIndexed("email") {
		t.Error("expected email to be indexed after AddIndex")
	}

	_ = tbl.RemoveIndex("email_idx")
	if tbl.ColumnIsIndexed("email") {
		t.Error("expected email to no longer be indexed after RemoveIndex")
	}
}

func TestTable_Clone_IsIndependent(t *testing.T) {
	tbl := newIntPK("accounts")
	cp := tbl.Clone()

	_ = cp.AddColumn(NewColumn("extra", "varchar"), ColumnPositionEnd())
	if tbl.HasColumn("extra") {
		t.Error("mutating the clone should not affect the original table")
	}
}

func TestTable_CreateStatement(t *testing.T) {
	tbl := newIntPK("accounts")
	stmt := tbl.CreateStatement()
	want := "CREATE TABLE `accounts` (`id` INT NOT NULL AUTO_INCREMENT, PRIMARY KEY (`id`));"
	if stmt != want {
		t.Errorf("got %q, want %q", stmt, want)
	}
}
