package connectfour

import (
	"slices"
	"strings"

	"zero/game"
)

const (
	Rows    = 6
	Cols    = 7
	Cells   = Rows * Cols
	InARow  = 4
	MaxPlys = Cells
)

type Game struct{}

func New() Game {
	return Game{}
}

func (Game) Name() string      { return "connect_four" }
func (Game) NumActions() int   { return Cols }
func (Game) EncodingSize() int { return 2 * Cells }

func (Game) NewInitialState() game.State {
	return &State{}
}

// State is a position; an action is the column a disc is dropped into.
// Cells hold 0 when empty, otherwise the seat number plus one.
type State struct {
	cells   [Rows][Cols]int8
	heights [Cols]int8
	history []int
	winner  int8
}

// FromHistory replays columns from the empty board. It panics on an illegal action.
func FromHistory(columns ...int) *State {
	var state game.State = &State{}
	for _, c := range columns {
		if !game.IsLegal(state, c) {
			panic("illegal column in history")
		}
		state = state.Play(c)
	}
	return state.(*State)
}

func (s *State) Player() int {
	return len(s.history) % 2
}

func (s *State) LegalActions() []int {
	if s.IsTerminal() {
		return nil
	}
	actions := make([]int, 0, Cols)
	for c := 0; c < Cols; c++ {
		if s.heights[c] < Rows {
			actions = append(actions, c)
		}
	}
	return actions
}

func (s *State) Play(column int) game.State {
	if column < 0 || column >= Cols || s.heights[column] >= Rows {
		panic("column is not playable")
	}
	next := &State{
		cells:   s.cells,
		heights: s.heights,
		history: append(slices.Clone(s.history), column),
	}
	disc := int8(s.Player() + 1)
	row := int(next.heights[column])
	next.cells[row][column] = disc
	next.heights[column]++
	if next.connects(row, column, disc) {
		next.winner = disc
	}
	return next
}

func (s *State) connects(row, col int, disc int8) bool {
	directions := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, d := range directions {
		count := 1 + s.count(row, col, d[0], d[1], disc) + s.count(row, col, -d[0], -d[1], disc)
		if count >= InARow {
			return true
		}
	}
	return false
}

func (s *State) count(row, col, dr, dc int, disc int8) int {
	n := 0
	for r, c := row+dr, col+dc; r >= 0 && r < Rows && c >= 0 && c < Cols && s.cells[r][c] == disc; r, c = r+dr, c+dc {
		n++
	}
	return n
}

func (s *State) IsTerminal() bool {
	return s.winner != 0 || len(s.history) == MaxPlys
}

func (s *State) Returns() [game.NumPlayers]float64 {
	var returns [game.NumPlayers]float64
	if s.winner != 0 {
		w := int(s.winner) - 1
		returns[w] = 1
		returns[game.Opponent(w)] = -1
	}
	return returns
}

func (s *State) History() []int {
	return slices.Clone(s.history)
}

// Encode returns two row-major planes: the mover's discs, then the opponent's.
func (s *State) Encode() []float32 {
	own := int8(s.Player() + 1)
	out := make([]float32, 2*Cells)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			switch d := s.cells[r][c]; {
			case d == 0:
			case d == own:
				out[r*Cols+c] = 1
			default:
				out[Cells+r*Cols+c] = 1
			}
		}
	}
	return out
}

func (s *State) String() string {
	var sb strings.Builder
	for r := Rows - 1; r >= 0; r-- {
		for c := 0; c < Cols; c++ {
			switch s.cells[r][c] {
			case 1:
				sb.WriteByte('x')
			case 2:
				sb.WriteByte('o')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
