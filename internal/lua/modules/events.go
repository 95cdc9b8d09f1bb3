package modules

import (
	"context"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/streetlightd/internal/eventbus"
	"github.com/dokzlo13/streetlightd/internal/lua/exec"
)

// Subscriber is the part of the event bus the events module needs.
type Subscriber interface {
	Subscribe(eventType eventbus.EventType, handler eventbus.Handler)
}

// EventsModule provides events.on() to Lua. Handlers are only read and
// written on the Lua worker.
type EventsModule struct {
	handlers map[eventbus.EventType][]*lua.LFunction
}

// NewEventsModule creates a new events module
func NewEventsModule() *EventsModule {
	return &EventsModule{handlers: make(map[eventbus.EventType][]*lua.LFunction)}
}

// Loader is the module loader for Lua
func (m *EventsModule) Loader(L *lua.LState) int {
	mod := L.NewTable()
	L.SetField(mod, "on", L.NewFunction(m.on))
	L.Push(mod)
	return 1
}

// on(name, fn) - Register fn for "day", "night", "presence" or "presence_cleared"
func (m *EventsModule) on(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	et, err := eventbus.ParseEventType(name)
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	m.handlers[et] = append(m.handlers[et], fn)

	log.Debug().Str("event", name).Int("handlers", len(m.handlers[et])).Msg("Lua event handler registered")
	return 0
}

// HandlerCount returns the number of registered handlers. Lua worker only.
func (m *EventsModule) HandlerCount() int {
	n := 0
	for _, hs := range m.handlers {
		n += len(hs)
	}
	return n
}

// Subscribe routes every sensor event to the Lua handlers through ex.
// Edges are not repeated, so the bus worker waits for queue space rather
// than dropping one. Handlers registered later, e.g. from inside another
// handler, are picked up on the next event.
func (m *EventsModule) Subscribe(ctx context.Context, bus Subscriber, ex exec.Executor) {
	for _, et := range eventbus.EventTypes() {
		bus.Subscribe(et, func(e eventbus.Event) {
			err := ex.DoSync(ctx, func(context.Context) {
				m.dispatch(ex.LState(), e)
			})
			if err != nil {
				log.Warn().Err(err).Str("event", string(e.Type)).Msg("Sensor event not delivered to Lua")
			}
		})
	}
}

func (m *EventsModule) dispatch(L *lua.LState, e eventbus.Event) {
	for _, fn := range m.handlers[e.Type] {
		if err := exec.CallHandler(L, fn, e.Data); err != nil {
			log.Error().Err(err).Str("event", string(e.Type)).Msg("Lua event handler failed")
		}
	}
}
