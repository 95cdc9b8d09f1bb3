package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/streetlightd/internal/config"
	luart "github.com/dokzlo13/streetlightd/internal/lua"
	"github.com/dokzlo13/streetlightd/internal/streetlight"
)

// LuaService wraps the Lua runtime hosting the user program.
type LuaService struct {
	cfg     *config.Config
	Runtime *luart.Runtime

	done chan struct{}
}

// NewLuaService creates a new LuaService.
func NewLuaService(cfg *config.Config, sl *streetlight.StreetLight) *LuaService {
	return &LuaService{
		cfg: cfg,
		Runtime: luart.NewRuntime(luart.RuntimeDeps{
			Light:   sl,
			BaseDir: cfg.Dir(),
		}),
	}
}

// LoadScript loads and executes the Lua script.
// Must be called before Start().
func (s *LuaService) LoadScript() error {
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Start begins the Lua worker goroutine.
func (s *LuaService) Start(ctx context.Context) {
	log.Info().Int("handlers", s.Runtime.Events().HandlerCount()).Int("timers", s.Runtime.Sched().Count()).Msg("Starting Lua worker")

	s.done = make(chan struct{})
	// Lua worker goroutine - this is the ONLY goroutine that touches Lua
	go func() {
		defer close(s.done)
		s.Runtime.Run(ctx)
	}()
}

// Close waits for the worker to exit and closes the Lua runtime.
func (s *LuaService) Close() {
	if s.done != nil {
		<-s.done
	}
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
