package mancala

import (
	"fmt"

	"github.com/rocketscienceinc/mancala-backend/internal/entity"
)

// LocalGame is the single-device mode: both seats share one board and the player to move is always
// the current player. Not safe for concurrent use.
type LocalGame struct {
	state entity.GameState
}

func NewLocalGame() *LocalGame {
	return &LocalGame{state: entity.NewGameState()}
}

func (that *LocalGame) State() entity.GameState {
	return that.state
}

// Play sows pitIndex on behalf of whoever is to move.
func (that *LocalGame) Play(pitIndex int) (entity.GameState, error) {
	next, err := ApplyMove(that.state, pitIndex, that.state.CurrentPlayer)
	if err != nil {
		return that.state, fmt.Errorf("failed to play pit %d: %w", pitIndex, err)
	}

	that.state = next

	return next, nil
}

func (that *LocalGame) Reset() entity.GameState {
	that.state = entity.NewGameState()

	return that.state
}
