package loader

import (
	"context"
	"strings"
	"testing"
)

func TestCreateTableSQL(t *testing.T) {
	sql := createTableSQL(`"public"."osm_features"`, 3857)
	for _, want := range []string{`"public"."osm_features"`, "GEOMETRY(Geometry, 3857)", "bounded BOOLEAN NOT NULL"} {
		if !strings.Contains(sql, want) {
			t.Errorf("DDL missing %q:\n%s", want, sql)
		}
	}
}

func TestRowSource(t *testing.T) {
	ch := make(chan []any, 2)
	ch <- []any{int64(1), "r"}
	ch <- []any{int64(2), "w"}
	close(ch)

	ctx, cancel := context.WithCancel(context.Background())
	src := &rowSource{ctx: ctx, rows: ch}
	var ids []int64
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, v[0].(int64))
	}
	if len(ids) != 2 || ids[1] != 2 {
		t.Errorf("rows = %v", ids)
	}
	if src.Err() != nil {
		t.Errorf("Err() = %v before cancel", src.Err())
	}
	cancel()
	if src.Err() == nil {
		t.Error("Err() should report cancellation")
	}
}
