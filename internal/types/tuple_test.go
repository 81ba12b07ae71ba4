package types

import "testing"

func testSchema() *Schema {
	cols := []Column{
		{ID: 1, Name: "id", Type: Int32, Nullable: false},
		{ID: 2, Name: "name", Type: Char, Length: 8, Nullable: true},
		{ID: 3, Name: "score", Type: Double, Nullable: true},
	}
	terms := []Term{
		{Table: "t", Name: "id"},
		{Table: "t", Name: "name"},
		{Table: "t", Name: "score"},
	}
	return NewSchema(cols, terms)
}

func TestTuple_SetGetRoundTrip(t *testing.T) {
	s := testSchema()
	tup := NewTuple(s)
	if err := tup.Set(0, int32(42)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tup.Set(1, "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tup.Set(2, 3.5); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := tup.Get(0); got != int32(42) {
		t.Fatalf("expected 42, got %v", got)
	}
	if got := tup.Get(1); got != "abc" {
		t.Fatalf("expected abc, got %v", got)
	}
	if got := tup.Get(2); got != 3.5 {
		t.Fatalf("expected 3.5, got %v", got)
	}
}

func TestTuple_NullRoundTrip(t *testing.T) {
	s := testSchema()
	tup := NewTuple(s)
	tup.SetNull(1)
	tup.SetNull(2)
	if !tup.IsNull(1) || !tup.IsNull(2) {
		t.Fatal("expected columns 1 and 2 to be NULL")
	}
	if tup.Get(1) != nil || tup.Get(2) != nil {
		t.Fatal("expected Get to return nil for NULL columns")
	}
}

func TestCompare_NullsSortFirst(t *testing.T) {
	if Compare(Int32, nil, int32(1)) != -1 {
		t.Fatal("expected NULL < non-null")
	}
	if Compare(Int32, int32(1), nil) != 1 {
		t.Fatal("expected non-null > NULL")
	}
	if Compare(Int32, nil, nil) != 0 {
		t.Fatal("expected NULL == NULL under Compare")
	}
}

func TestSchema_Concat(t *testing.T) {
	left := testSchema()
	right := testSchema()
	merged := left.Concat(right)
	if merged.NumCols() != 6 {
		t.Fatalf("expected 6 columns, got %d", merged.NumCols())
	}
	if merged.RowSize() != left.RowSize()+right.RowSize() {
		t.Fatalf("expected row size %d, got %d", left.RowSize()+right.RowSize(), merged.RowSize())
	}
}

func TestSchema_ProvidesAll(t *testing.T) {
	s := testSchema()
	ok := s.ProvidesAll([]AttrRef{{Table: "t", Name: "id"}, {Table: "t", Name: "score"}})
	if !ok {
		t.Fatal("expected schema to provide id and score")
	}
	if s.ProvidesAll([]AttrRef{{Table: "t", Name: "missing"}}) {
		t.Fatal("expected schema to not provide a missing attribute")
	}
}
