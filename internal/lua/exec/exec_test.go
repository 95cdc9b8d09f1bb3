package exec

import (
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestCallHandler(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	if err := L.DoString(`
		seen = nil
		function handler(ev)
			seen = ev.level + ev.raw
		end
		function broken()
			error("boom")
		end
	`); err != nil {
		t.Fatal(err)
	}

	fn := L.GetGlobal("handler").(*glua.LFunction)
	if err := CallHandler(L, fn, map[string]any{"level": 40, "raw": 2}); err != nil {
		t.Fatalf("CallHandler: %v", err)
	}
	if got := L.GetGlobal("seen"); got != glua.LNumber(42) {
		t.Errorf("seen = %v, want 42", got)
	}

	broken := L.GetGlobal("broken").(*glua.LFunction)
	if err := CallHandler(L, broken, nil); err == nil {
		t.Error("CallHandler should return the Lua error")
	}
}

func TestMapToTable_Nested(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tbl := MapToTable(L, map[string]any{
		"mode":  "blue",
		"token": uint64(7),
		"on":    true,
		"inner": map[string]interface{}{"level": 30},
	})

	if got := L.GetField(tbl, "mode"); got != glua.LString("blue") {
		t.Errorf("mode = %v", got)
	}
	if got := L.GetField(tbl, "token"); got != glua.LNumber(7) {
		t.Errorf("token = %v", got)
	}
	if got := L.GetField(tbl, "on"); got != glua.LTrue {
		t.Errorf("on = %v", got)
	}
	inner, ok := L.GetField(tbl, "inner").(*glua.LTable)
	if !ok {
		t.Fatalf("inner is %T, want table", L.GetField(tbl, "inner"))
	}
	if got := L.GetField(inner, "level"); got != glua.LNumber(30) {
		t.Errorf("inner.level = %v", got)
	}
}
