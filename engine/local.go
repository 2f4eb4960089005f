package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zero/agent"
	"zero/experiments/metrics"
	"zero/game"
)

var (
	ErrIllegalAction = errors.New("agent chose an illegal action")
	ErrMaxPlies      = errors.New("game exceeded the ply limit")
)

// Turn is passed to the observer before the chosen action is applied.
type Turn struct {
	Ply      int
	State    game.State
	Decision agent.Decision
}

type Observer func(Turn)

type localEngine struct {
	state   game.State
	seats   [game.NumPlayers]agent.Agent
	observe Observer
}

// LocalEngine seats seats[p] as player p. The observer may be nil.
func LocalEngine(initial game.State, seats [game.NumPlayers]agent.Agent, observe Observer) Engine {
	for _, a := range seats {
		if a == nil {
			panic("every seat needs an agent")
		}
	}
	return &localEngine{state: initial, seats: seats, observe: observe}
}

func (e *localEngine) Run(ctx context.Context) (game.State, metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{StartTime: time.Now()}
	var moveMetrics []metrics.MoveMetric

	state := e.state
	ply := 0
	for !state.IsTerminal() {
		if ply >= MaxPlies {
			return state, gameMetric, moveMetrics, ErrMaxPlies
		}
		if err := ctx.Err(); err != nil {
			return state, gameMetric, moveMetrics, err
		}

		player := state.Player()
		decision, err := e.seats[player].Step(state)
		if err != nil {
			return state, gameMetric, moveMetrics, fmt.Errorf("player %d failed at ply %d: %w", player, ply, err)
		}
		if !game.IsLegal(state, decision.Action) {
			return state, gameMetric, moveMetrics, fmt.Errorf("%w: %d at ply %d", ErrIllegalAction, decision.Action, ply)
		}

		if e.observe != nil {
			e.observe(Turn{Ply: ply, State: state, Decision: decision})
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         ply + 1,
			Player:       player,
			Action:       decision.Action,
			SearchMetric: decision.Metric,
		})

		state = state.Play(decision.Action)
		ply++
	}

	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = ply
	gameMetric.Outcome = game.Outcome(state, 0)
	return state, gameMetric, moveMetrics, nil
}
