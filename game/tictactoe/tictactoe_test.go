package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zero/game"
)

func TestPlay(t *testing.T) {
	t.Run("diagonal wins for the first player", func(t *testing.T) {
		state := FromHistory(0, 1, 4, 2, 8)

		require.True(t, state.IsTerminal(), "Three in a diagonal should end the game")
		require.Empty(t, state.LegalActions(), "Terminal state should have no legal actions")
		require.Equal(t, [game.NumPlayers]float64{1, -1}, state.Returns())
	})

	t.Run("full board without a line is a draw", func(t *testing.T) {
		state := FromHistory(0, 1, 2, 4, 3, 5, 7, 6, 8)

		require.True(t, state.IsTerminal())
		require.Equal(t, [game.NumPlayers]float64{0, 0}, state.Returns())
	})

	t.Run("successor does not alias its parent", func(t *testing.T) {
		parent := FromHistory(4)
		a := parent.Play(0)
		b := parent.Play(8)

		require.Equal(t, []int{4}, parent.History())
		require.Equal(t, []int{4, 0}, a.History())
		require.Equal(t, []int{4, 8}, b.History())
		require.Len(t, parent.LegalActions(), Size-1)
	})

	t.Run("panics on an occupied cell", func(t *testing.T) {
		state := FromHistory(4)
		require.Panics(t, func() {
			state.Play(4)
		}, "Should panic when the cell is taken")
	})
}

func TestEncode(t *testing.T) {
	t.Run("planes follow the player to move", func(t *testing.T) {
		state := FromHistory(4)
		encoding := state.Encode()

		require.Len(t, encoding, New().EncodingSize())
		require.Equal(t, 1, state.Player())
		require.Equal(t, float32(0), encoding[4], "Mover has no discs yet")
		require.Equal(t, float32(1), encoding[Size+4], "Opponent's mark is on the second plane")
	})

	t.Run("mirrored positions share a key", func(t *testing.T) {
		a := FromHistory(0, 4)
		b := FromHistory(4, 0)
		require.NotEqual(t, game.KeyOf(a.Encode()), game.KeyOf(b.Encode()))

		c := FromHistory(0, 4, 8, 2)
		d := FromHistory(8, 2, 0, 4)
		require.Equal(t, game.KeyOf(c.Encode()), game.KeyOf(d.Encode()), "Transposed move orders reach the same position")
	})
}
