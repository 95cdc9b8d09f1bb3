// Package exec provides the Executor interface for thread-safe Lua execution.
// This package is separate from lua to avoid import cycles with the modules.
package exec

import (
	"context"
	"fmt"

	glua "github.com/yuin/gopher-lua"
)

// Executor provides thread-safe Lua execution and state access.
// This interface is implemented by Runtime and used by event and timer callbacks.
type Executor interface {
	// Do queues work to be executed on the Lua VM, dropping it when the queue is full
	Do(ctx context.Context, work func(ctx context.Context)) bool
	// DoSync queues work, waiting for queue space
	DoSync(ctx context.Context, work func(ctx context.Context)) error
	// LState returns the underlying Lua state (for use within Do callbacks only)
	LState() *glua.LState
}

// CallHandler calls fn with an optional table argument built from data.
// MUST be called from within an Executor.Do() callback to ensure thread safety.
func CallHandler(L *glua.LState, fn *glua.LFunction, data map[string]any) error {
	args := []glua.LValue{}
	if data != nil {
		args = append(args, MapToTable(L, data))
	}
	return L.CallByParam(glua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...)
}

// MapToTable converts a Go map to a Lua table. Nested maps become nested
// tables; unknown types are stored as their %v string.
func MapToTable(L *glua.LState, m map[string]any) *glua.LTable {
	tbl := L.NewTable()
	for k, v := range m {
		L.SetField(tbl, k, goToLuaValue(L, v))
	}
	return tbl
}

// goToLuaValue converts a Go value to a Lua value
func goToLuaValue(L *glua.LState, v interface{}) glua.LValue {
	switch val := v.(type) {
	case nil:
		return glua.LNil
	case bool:
		return glua.LBool(val)
	case int:
		return glua.LNumber(val)
	case int64:
		return glua.LNumber(val)
	case uint64:
		return glua.LNumber(val)
	case float64:
		return glua.LNumber(val)
	case string:
		return glua.LString(val)
	case map[string]interface{}:
		return MapToTable(L, val)
	default:
		return glua.LString(fmt.Sprintf("%v", v))
	}
}
