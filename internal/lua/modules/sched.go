package modules

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/streetlightd/internal/lua/exec"
)

// SchedModule provides sched.every(), sched.after() and sched.cancel() to Lua.
// Timers tick on their own goroutines and post the callback to the Lua
// worker, so callbacks never run in parallel with other Lua code.
//
// Timers created while the script loads start when Start is called.
type SchedModule struct {
	mu      sync.Mutex
	ctx     context.Context // nil until Start
	ex      exec.Executor
	timers  map[int]*luaTimer
	nextID  int
	stopped bool
	wg      sync.WaitGroup
}

type luaTimer struct {
	id       int
	repeat   bool
	interval time.Duration
	fn       *lua.LFunction
	stop     chan struct{}
	stopOnce sync.Once
}

func (t *luaTimer) cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *luaTimer) cancelled() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// NewSchedModule creates a new sched module
func NewSchedModule() *SchedModule {
	return &SchedModule{timers: make(map[int]*luaTimer)}
}

// Loader is the module loader for Lua
func (m *SchedModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "every", L.NewFunction(m.every))
	L.SetField(mod, "after", L.NewFunction(m.after))
	L.SetField(mod, "cancel", L.NewFunction(m.cancel))

	L.Push(mod)
	return 1
}

// every(ms, fn) -> timer id. Runs fn every ms milliseconds.
func (m *SchedModule) every(L *lua.LState) int {
	ms := L.CheckInt(1)
	fn := L.CheckFunction(2)
	if ms <= 0 {
		L.ArgError(1, "interval must be positive")
		return 0
	}
	L.Push(lua.LNumber(m.add(true, time.Duration(ms)*time.Millisecond, fn)))
	return 1
}

// after(ms, fn) -> timer id. Runs fn once after ms milliseconds.
func (m *SchedModule) after(L *lua.LState) int {
	ms := L.CheckInt(1)
	fn := L.CheckFunction(2)
	if ms < 0 {
		ms = 0
	}
	L.Push(lua.LNumber(m.add(false, time.Duration(ms)*time.Millisecond, fn)))
	return 1
}

// cancel(id) -> bool
func (m *SchedModule) cancel(L *lua.LState) int {
	id := L.CheckInt(1)

	m.mu.Lock()
	t, ok := m.timers[id]
	delete(m.timers, id)
	m.mu.Unlock()

	if ok {
		t.cancel()
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (m *SchedModule) add(repeat bool, interval time.Duration, fn *lua.LFunction) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	t := &luaTimer{
		id:       m.nextID,
		repeat:   repeat,
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
	}
	if m.stopped {
		t.cancel()
		return t.id
	}
	m.timers[t.id] = t
	if m.ctx != nil {
		m.launchLocked(t)
	}

	log.Debug().Int("timer", t.id).Bool("repeat", repeat).Dur("interval", interval).Msg("Lua timer created")
	return t.id
}

// Start launches pending timers. Later timers launch on creation.
func (m *SchedModule) Start(ctx context.Context, ex exec.Executor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx = ctx
	m.ex = ex
	for _, t := range m.timers {
		m.launchLocked(t)
	}
}

// Stop cancels every timer and waits for their goroutines.
func (m *SchedModule) Stop() {
	m.mu.Lock()
	m.stopped = true
	for id, t := range m.timers {
		t.cancel()
		delete(m.timers, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Count returns the number of live timers.
func (m *SchedModule) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *SchedModule) launchLocked(t *luaTimer) {
	ctx, ex := m.ctx, m.ex
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, ex, t)
	}()
}

func (m *SchedModule) run(ctx context.Context, ex exec.Executor, t *luaTimer) {
	if !t.repeat {
		timer := time.NewTimer(t.interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-t.stop:
		case <-timer.C:
			m.mu.Lock()
			delete(m.timers, t.id)
			m.mu.Unlock()
			m.fire(ctx, ex, t)
		}
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			m.fire(ctx, ex, t)
		}
	}
}

func (m *SchedModule) fire(ctx context.Context, ex exec.Executor, t *luaTimer) {
	ex.Do(ctx, func(context.Context) {
		if t.repeat && t.cancelled() {
			return
		}
		if err := exec.CallHandler(ex.LState(), t.fn, nil); err != nil {
			log.Error().Err(err).Int("timer", t.id).Msg("Lua timer callback failed")
		}
	})
}
