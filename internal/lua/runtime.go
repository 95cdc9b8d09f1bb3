// Package lua hosts the user program: one gopher-lua VM driven by a single
// worker goroutine, with the streetlight, events, sched and log modules
// preloaded.
package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/streetlightd/internal/lua/modules"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = fmt.Errorf("lua runtime closed")

// DefaultQueueSize bounds pending Lua work.
const DefaultQueueSize = 100

// LuaWork represents work to be executed on the Lua VM
// All Lua execution MUST go through this to ensure thread safety
type LuaWork = func(ctx context.Context)

// Runtime manages the Lua VM with single-threaded execution
type Runtime struct {
	L       *lua.LState
	deps    RuntimeDeps
	baseDir string

	// Modules
	eventsModule *modules.EventsModule
	schedModule  *modules.SchedModule

	// Work queue for thread-safe Lua execution
	workQueue chan LuaWork

	// Shutdown signaling - closing this channel signals senders to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a new Lua runtime
func NewRuntime(deps RuntimeDeps) *Runtime {
	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	r := &Runtime{
		L:         lua.NewState(),
		deps:      deps,
		baseDir:   deps.BaseDir,
		workQueue: make(chan LuaWork, queueSize),
		closing:   make(chan struct{}),
	}

	r.registerModules()

	return r
}

// Close signals the runtime to stop accepting new work and closes the Lua state.
// Call it after Run has returned: the state must not be closed under a running script.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
	})
	// workQueue is never closed, so a racing Do cannot panic.
	r.schedModule.Stop()
	r.L.Close()
}

// Do queues work to be executed on the Lua VM (thread-safe, non-blocking)
// Returns false if the runtime is closing, queue is full, or context is cancelled.
func (r *Runtime) Do(ctx context.Context, work LuaWork) bool {
	select {
	case <-r.closing:
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	default:
	}

	select {
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// DoSync queues work and blocks until there's space (thread-safe, blocking)
// Returns error if the runtime is closing or context is cancelled.
func (r *Runtime) DoSync(ctx context.Context, work LuaWork) error {
	// Checked first: the queue may have room after Close.
	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- work:
		return nil
	}
}

// LState returns the Lua state. Only use it inside Do callbacks.
func (r *Runtime) LState() *lua.LState {
	return r.L
}

// registerModules registers all Lua modules
func (r *Runtime) registerModules() {
	r.L.PreloadModule("log", modules.NewLogModule().Loader)

	if r.deps.Light != nil {
		r.L.PreloadModule("streetlight", modules.NewStreetlightModule(r.deps.Light).Loader)
	}

	r.eventsModule = modules.NewEventsModule()
	r.L.PreloadModule("events", r.eventsModule.Loader)

	r.schedModule = modules.NewSchedModule()
	r.L.PreloadModule("sched", r.schedModule.Loader)
}

// Run starts the Lua worker goroutine - this is the ONLY goroutine that touches Lua
// It includes panic recovery to prevent crashes from killing the worker.
// Exits when context is cancelled or runtime is closed; timers stop with it.
func (r *Runtime) Run(ctx context.Context) {
	r.schedModule.Start(ctx, r)
	defer r.schedModule.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work LuaWork) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	// Set context on LState so modules can access it via L.Context()
	r.L.SetContext(ctx)
	work(ctx)
}

// LoadScript loads and executes a Lua script (must be called before Run)
func (r *Runtime) LoadScript(path string) error {
	if !filepath.IsAbs(path) && r.baseDir != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(r.baseDir, path)
		}
	}

	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Msg("Lua script loaded successfully")
	return nil
}

// Events returns the events module for bus registration
func (r *Runtime) Events() *modules.EventsModule {
	return r.eventsModule
}

// Sched returns the timer module
func (r *Runtime) Sched() *modules.SchedModule {
	return r.schedModule
}
