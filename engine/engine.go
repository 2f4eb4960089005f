package engine

import (
	"context"

	"zero/experiments/metrics"
	"zero/game"
)

const MaxPlies = 10000

type Engine interface {
	// Run plays till the state is terminal or MaxPlies is reached
	Run(ctx context.Context) (final game.State, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
