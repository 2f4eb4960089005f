package game

// NumPlayers is the number of seats in every game the searcher supports.
const NumPlayers = 2

// State should be immutable - operations on State always return a new copy
type State interface {
	// Player returns the seat to move, derived from the parity of the history
	Player() int
	// LegalActions returns the playable action ids in ascending order, empty once terminal
	LegalActions() []int
	Play(action int) State
	IsTerminal() bool
	// Returns holds the terminal score of each seat: +1 win, -1 loss, 0 draw
	Returns() [NumPlayers]float64
	History() []int
	// Encode returns the position from the point of view of the player to move
	Encode() []float32
	String() string
}

// Game is a rules engine producing initial states.
type Game interface {
	Name() string
	NumActions() int
	EncodingSize() int
	NewInitialState() State
}

// Outcome returns the terminal score of state from the perspective of player.
func Outcome(state State, player int) float64 {
	return state.Returns()[player]
}

// Opponent returns the other seat.
func Opponent(player int) int {
	return 1 - player
}

// IsLegal reports whether action is playable in state.
func IsLegal(state State, action int) bool {
	for _, a := range state.LegalActions() {
		if a == action {
			return true
		}
	}
	return false
}
