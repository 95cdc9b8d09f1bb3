// Package periph drives the street light hardware on Raspberry Pi class
// hosts through periph.io.
package periph

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the host drivers. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			initErr = fmt.Errorf("periph host init: %w", err)
			return
		}
		for _, d := range state.Loaded {
			log.Debug().Str("driver", d.String()).Msg("periph driver loaded")
		}
		for _, f := range state.Failed {
			log.Warn().Str("driver", f.D.String()).Err(f.Err).Msg("periph driver failed")
		}
	})
	return initErr
}
