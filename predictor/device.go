package predictor

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	CPU = "cpu"
	GPU = "gpu"
)

var fallbackOnce sync.Once

// ResolveDevice returns the compute device to use. Only the CPU backend is
// built in; asking for an accelerator falls back to it and logs once per process.
func ResolveDevice(preferred string) string {
	switch strings.ToLower(preferred) {
	case "", CPU:
		return CPU
	default:
		fallbackOnce.Do(func() {
			log.Warn().Str("preferred", preferred).Msg("tried to use an accelerator, but none is available; using cpu")
		})
		return CPU
	}
}
