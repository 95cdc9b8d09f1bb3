package modules

import (
	"context"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/streetlightd/internal/light"
	"github.com/dokzlo13/streetlightd/internal/lua/exec"
	"github.com/dokzlo13/streetlightd/internal/streetlight"
)

// StreetlightModule exposes the lamp commands to Lua.
//
// ERROR HANDLING CONVENTION:
//   - set_mode(), ramp(): L.ArgError() for names outside the palette
//   - switch_on(), switch_off(), sensor reads: return (value, error_string)
//     so a flaky device does not abort the script
//   - numeric arguments are clamped, never rejected
type StreetlightModule struct {
	light *streetlight.StreetLight
}

// NewStreetlightModule creates a new streetlight module
func NewStreetlightModule(l *streetlight.StreetLight) *StreetlightModule {
	return &StreetlightModule{light: l}
}

// Loader is the module loader for Lua
func (m *StreetlightModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "switch_on", L.NewFunction(m.switchOn))
	L.SetField(mod, "switch_off", L.NewFunction(m.switchOff))
	L.SetField(mod, "set_mode", L.NewFunction(m.setMode))
	L.SetField(mod, "set_power", L.NewFunction(m.setPower))
	L.SetField(mod, "set_threshold", L.NewFunction(m.setThreshold))
	L.SetField(mod, "light_level", L.NewFunction(m.lightLevel))
	L.SetField(mod, "is_day", L.NewFunction(m.isDay))
	L.SetField(mod, "is_night", L.NewFunction(m.isNight))
	L.SetField(mod, "presence", L.NewFunction(m.presence))
	L.SetField(mod, "ramp", L.NewFunction(m.ramp))
	L.SetField(mod, "cancel", L.NewFunction(m.cancel))
	L.SetField(mod, "status", L.NewFunction(m.status))

	L.Push(mod)
	return 1
}

// luaContext returns the context of the work item running on L.
func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// pushResult pushes (true, nil) or (false, err) and returns 2.
func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	L.Push(lua.LNil)
	return 2
}

// switch_on() -> (ok, err)
func (m *StreetlightModule) switchOn(L *lua.LState) int {
	err := m.light.SwitchOn(luaContext(L))
	if err != nil {
		log.Warn().Err(err).Msg("Switch on completed with device errors")
	}
	return pushResult(L, err)
}

// switch_off() -> (ok, err)
func (m *StreetlightModule) switchOff(L *lua.LState) int {
	err := m.light.SwitchOff(luaContext(L))
	if err != nil {
		log.Warn().Err(err).Msg("Switch off completed with device errors")
	}
	return pushResult(L, err)
}

func checkMode(L *lua.LState, n int) light.Mode {
	mode, err := light.ParseMode(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return mode
}

// set_mode(name)
func (m *StreetlightModule) setMode(L *lua.LState) int {
	m.light.SetLightingMode(luaContext(L), checkMode(L, 1))
	return 0
}

// set_power(pct) -> stored pct
func (m *StreetlightModule) setPower(L *lua.LState) int {
	L.Push(lua.LNumber(m.light.SetPower(luaContext(L), L.CheckInt(1))))
	return 1
}

// set_threshold(pct) -> stored pct
func (m *StreetlightModule) setThreshold(L *lua.LState) int {
	L.Push(lua.LNumber(m.light.SetDayNightThreshold(L.CheckInt(1))))
	return 1
}

// light_level() -> (pct, err)
func (m *StreetlightModule) lightLevel(L *lua.LState) int {
	level, err := m.light.ReadLightLevel(luaContext(L))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(level))
	L.Push(lua.LNil)
	return 2
}

func pushBool(L *lua.LState, v bool, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LBool(v))
	L.Push(lua.LNil)
	return 2
}

// is_day() -> (bool, err)
func (m *StreetlightModule) isDay(L *lua.LState) int {
	day, err := m.light.IsDay(luaContext(L))
	return pushBool(L, day, err)
}

// is_night() -> (bool, err)
func (m *StreetlightModule) isNight(L *lua.LState) int {
	night, err := m.light.IsNight(luaContext(L))
	return pushBool(L, night, err)
}

// presence() -> (bool, err)
func (m *StreetlightModule) presence(L *lua.LState) int {
	present, err := m.light.IsPresenceDetected()
	return pushBool(L, present, err)
}

// ramp(name, start, end, seconds) -> ramp id
func (m *StreetlightModule) ramp(L *lua.LState) int {
	mode := checkMode(L, 1)
	start := L.CheckInt(2)
	end := L.CheckInt(3)
	seconds := L.CheckInt(4)

	L.Push(lua.LString(m.light.RampLighting(luaContext(L), mode, start, end, seconds)))
	return 1
}

// cancel() stops a running ramp where it is
func (m *StreetlightModule) cancel(L *lua.LState) int {
	m.light.Cancel()
	return 0
}

// status() -> table
func (m *StreetlightModule) status(L *lua.LState) int {
	st := m.light.Status()
	L.Push(exec.MapToTable(L, map[string]any{
		"mode":      st.Mode.String(),
		"color":     st.Color.String(),
		"power":     st.Power,
		"level":     st.Level,
		"token":     st.Token,
		"phase":     st.Phase.String(),
		"ramp_id":   st.RampID,
		"threshold": m.light.Threshold(),
	}))
	return 1
}
