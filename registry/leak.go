package registry

import (
	"log/slog"

	"github.com/guileen/closereg/logger"
)

// leakProbe is handed to runtime.AddCleanup and must not reference the
// Registry it reports on.
type leakProbe struct {
	log     *slog.Logger
	pending *stack
}

// reportLeak logs resources that were never released by a Registry that has
// become unreachable. Nothing is released from here.
func reportLeak(p leakProbe) {
	if len(p.pending.actions) == 0 {
		return
	}
	p.log.Warn("registry collected with unreleased resources",
		logger.Int("pending", len(p.pending.actions)),
		logger.Any("categories", p.pending.countByCategory()))
}

func (s *stack) countByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, a := range s.actions {
		counts[a.Category()]++
	}
	return counts
}
