package tictactoe

import (
	"slices"
	"strings"

	"zero/game"
)

const (
	Rows = 3
	Cols = 3
	Size = Rows * Cols
)

type Mark int8

const (
	Empty Mark = iota
	Nought
	Cross
)

// Board is the 3x3 grid in row-major order.
type Board [Size]Mark

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

type Game struct{}

func New() Game {
	return Game{}
}

func (Game) Name() string      { return "tic_tac_toe" }
func (Game) NumActions() int   { return Size }
func (Game) EncodingSize() int { return 2 * Size }

func (Game) NewInitialState() game.State {
	return &State{}
}

// State is a position; actions are cell indices.
type State struct {
	board   Board
	history []int
	winner  Mark
}

// FromHistory replays actions from the empty board. It panics on an illegal action.
func FromHistory(actions ...int) *State {
	var state game.State = &State{}
	for _, a := range actions {
		if !game.IsLegal(state, a) {
			panic("illegal action in history")
		}
		state = state.Play(a)
	}
	return state.(*State)
}

func markOf(player int) Mark {
	return Mark(player + 1)
}

func (s *State) Player() int {
	return len(s.history) % 2
}

func (s *State) Board() Board {
	return s.board
}

func (s *State) LegalActions() []int {
	if s.IsTerminal() {
		return nil
	}
	actions := make([]int, 0, Size)
	for i, m := range s.board {
		if m == Empty {
			actions = append(actions, i)
		}
	}
	return actions
}

func (s *State) Play(action int) game.State {
	if action < 0 || action >= Size || s.board[action] != Empty {
		panic("cell is not playable")
	}
	next := &State{
		board:   s.board,
		history: append(slices.Clone(s.history), action),
	}
	mark := markOf(s.Player())
	next.board[action] = mark
	for _, line := range lines {
		if next.board[line[0]] == mark && next.board[line[1]] == mark && next.board[line[2]] == mark {
			next.winner = mark
			break
		}
	}
	return next
}

func (s *State) IsTerminal() bool {
	return s.winner != Empty || len(s.history) == Size
}

func (s *State) Returns() [game.NumPlayers]float64 {
	switch s.winner {
	case Nought:
		return [game.NumPlayers]float64{1, -1}
	case Cross:
		return [game.NumPlayers]float64{-1, 1}
	}
	return [game.NumPlayers]float64{}
}

func (s *State) History() []int {
	return slices.Clone(s.history)
}

// Encode returns two planes: the mover's marks, then the opponent's.
func (s *State) Encode() []float32 {
	own := markOf(s.Player())
	out := make([]float32, 2*Size)
	for i, m := range s.board {
		switch {
		case m == Empty:
		case m == own:
			out[i] = 1
		default:
			out[Size+i] = 1
		}
	}
	return out
}

func (s *State) String() string {
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			switch s.board[r*Cols+c] {
			case Nought:
				sb.WriteByte('o')
			case Cross:
				sb.WriteByte('x')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
