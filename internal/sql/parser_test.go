package sql

import "testing"

func TestParseCreateTable(t *testing.T) {
	stmt := "CREATE TABLE t (id INT PRIMARY KEY, name CHAR(16), v DOUBLE)"
	p := NewParser(stmt)
	parsed, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	create, ok := parsed.(*CreateTableStmt)
	if !ok {
		t.Fatalf("expected CreateTableStmt, got %T", parsed)
	}
	if create.Name != "t" || len(create.Columns) != 3 {
		t.Fatalf("unexpected table: %+v", create)
	}
	if !create.Columns[0].PrimaryKey {
		t.Fatalf("expected id to be primary key: %+v", create.Columns[0])
	}
	if create.Columns[1].Type != "CHAR" || create.Columns[1].Length != 16 {
		t.Fatalf("unexpected char column: %+v", create.Columns[1])
	}
}

func TestParseCreateUniqueIndex(t *testing.T) {
	stmt := "CREATE UNIQUE INDEX idx_id ON t(id) USING hash"
	p := NewParser(stmt)
	parsed, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	idx, ok := parsed.(*CreateIndexStmt)
	if !ok {
		t.Fatalf("expected CreateIndexStmt, got %T", parsed)
	}
	if !idx.Unique || idx.Table != "t" || idx.Column != "id" || idx.Using != "hash" {
		t.Fatalf("unexpected index: %+v", idx)
	}
}

func TestParseInsertMultiRow(t *testing.T) {
	stmt := "INSERT INTO t(id, name) VALUES (1, 'a'), (2, 'b')"
	p := NewParser(stmt)
	parsed, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ins, ok := parsed.(*InsertStmt)
	if !ok {
		t.Fatalf("expected InsertStmt, got %T", parsed)
	}
	if len(ins.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ins.Rows))
	}
	lit, ok := ins.Rows[1][1].(*Literal)
	if !ok || lit.Val != "b" {
		t.Fatalf("unexpected second row: %+v", ins.Rows[1])
	}
}

func TestParseUpdateWithArithmetic(t *testing.T) {
	stmt := "UPDATE t SET v = v + 1 WHERE id = 1"
	p := NewParser(stmt)
	parsed, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	upd, ok := parsed.(*UpdateStmt)
	if !ok {
		t.Fatalf("expected UpdateStmt, got %T", parsed)
	}
	if len(upd.Sets) != 1 || upd.Sets[0].Column != "v" {
		t.Fatalf("unexpected sets: %+v", upd.Sets)
	}
	bin, ok := upd.Sets[0].Value.(*Binary)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected v + 1, got %+v", upd.Sets[0].Value)
	}
	where, ok := upd.Where.(*Binary)
	if !ok || where.Op != "=" {
		t.Fatalf("expected id = 1, got %+v", upd.Where)
	}
}

func TestParseSelectJoinOrderLimitOffset(t *testing.T) {
	stmt := "SELECT r.a, s.b FROM r JOIN s ON r.a = s.a WHERE r.a > 1 ORDER BY r.a DESC LIMIT 2 OFFSET 1"
	p := NewParser(stmt)
	parsed, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sel, ok := parsed.(*SelectStmt)
	if !ok {
		t.Fatalf("expected SelectStmt, got %T", parsed)
	}
	if len(sel.Projs) != 2 || len(sel.Joins) != 1 {
		t.Fatalf("unexpected select: %+v", sel)
	}
	if sel.From.Table != "r" || sel.Joins[0].Right.Table != "s" {
		t.Fatalf("unexpected from/join: %+v", sel)
	}
	if sel.OrderBy[0].Col != "a" || !sel.OrderBy[0].Desc {
		t.Fatalf("unexpected order by: %+v", sel.OrderBy)
	}
	if sel.Limit == nil || *sel.Limit != 2 || sel.Offset == nil || *sel.Offset != 1 {
		t.Fatalf("unexpected limit/offset: %+v %+v", sel.Limit, sel.Offset)
	}
}

func TestParseSelectStarAggregate(t *testing.T) {
	p := NewParser("SELECT COUNT(*) FROM t")
	parsed, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sel := parsed.(*SelectStmt)
	fc, ok := sel.Projs[0].Expr.(*FuncCall)
	if !ok || fc.Name != "COUNT" || !fc.Star {
		t.Fatalf("unexpected projection: %+v", sel.Projs[0])
	}
}

func TestParseTransactionControl(t *testing.T) {
	for _, tc := range []struct {
		sql  string
		want Statement
	}{
		{"BEGIN", &BeginStmt{}},
		{"COMMIT", &CommitStmt{}},
		{"ABORT", &AbortStmt{}},
		{"ROLLBACK", &AbortStmt{}},
	} {
		parsed, err := NewParser(tc.sql).ParseStatement()
		if err != nil {
			t.Fatalf("parse %q: %v", tc.sql, err)
		}
		switch tc.want.(type) {
		case *BeginStmt:
			if _, ok := parsed.(*BeginStmt); !ok {
				t.Fatalf("%q: expected BeginStmt, got %T", tc.sql, parsed)
			}
		case *CommitStmt:
			if _, ok := parsed.(*CommitStmt); !ok {
				t.Fatalf("%q: expected CommitStmt, got %T", tc.sql, parsed)
			}
		case *AbortStmt:
			if _, ok := parsed.(*AbortStmt); !ok {
				t.Fatalf("%q: expected AbortStmt, got %T", tc.sql, parsed)
			}
		}
	}
}

func TestParseDeleteWhere(t *testing.T) {
	parsed, err := NewParser("DELETE FROM t WHERE id = 1").ParseStatement()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	del, ok := parsed.(*DeleteStmt)
	if !ok || del.Table != "t" {
		t.Fatalf("unexpected delete: %+v", parsed)
	}
	if _, ok := del.Where.(*Binary); !ok {
		t.Fatalf("expected WHERE predicate, got %+v", del.Where)
	}
}
