package lua

import (
	"github.com/dokzlo13/streetlightd/internal/streetlight"
)

// RuntimeDeps groups all dependencies needed by Lua runtime.
type RuntimeDeps struct {
	Light *streetlight.StreetLight
	// BaseDir resolves relative script paths, usually the config file directory.
	BaseDir string
	// QueueSize bounds pending Lua work; 0 selects DefaultQueueSize.
	QueueSize int
}
