package mancala

import (
	"fmt"

	"github.com/rocketscienceinc/mancala-backend/internal/apperror"
	"github.com/rocketscienceinc/mancala-backend/internal/entity"
)

// ApplyMove plays pitIndex for player and returns the resulting state. On rejection the input state is
// returned as-is together with the reason.
func ApplyMove(state entity.GameState, pitIndex int, player string) (entity.GameState, error) {
	if err := validateMove(state, pitIndex, player); err != nil {
		return state, fmt.Errorf("invalid move: %w", err)
	}

	next := state
	landing := sow(&next.Board, pitIndex, player)

	applyLandingRule(&next, landing, player)
	checkGameOver(&next)

	return next, nil
}

// LegalMoves lists the pits player may play in state, in ascending order.
func LegalMoves(state entity.GameState, player string) []int {
	if state.GameOver || state.CurrentPlayer != player {
		return nil
	}

	moves := make([]int, 0, entity.PitsPerPlayer)
	first := entity.FirstPit(player)
	for pit := first; pit < first+entity.PitsPerPlayer; pit++ {
		if state.Board[pit] > 0 {
			moves = append(moves, pit)
		}
	}

	return moves
}

// validateMove - checks the move preconditions in order.
func validateMove(state entity.GameState, pitIndex int, player string) error {
	if state.GameOver {
		return apperror.ErrGameAlreadyOver
	}

	if state.CurrentPlayer != player {
		return apperror.ErrNotYourTurn
	}

	if !entity.IsOwnPit(player, pitIndex) {
		return fmt.Errorf("%w: pit %d", apperror.ErrNotYourPit, pitIndex)
	}

	if state.Board[pitIndex] == 0 {
		return fmt.Errorf("%w: pit %d", apperror.ErrEmptyPit, pitIndex)
	}

	return nil
}

// sow empties pitIndex and drops its stones one by one, skipping the opponent's store.
// Returns the slot that received the last stone.
func sow(board *entity.Board, pitIndex int, player string) int {
	stones := board[pitIndex]
	board[pitIndex] = 0

	skip := entity.StoreOf(entity.Opponent(player))
	slot := pitIndex
	for stones > 0 {
		slot = (slot + 1) % entity.SlotCount
		if slot == skip {
			continue
		}

		board[slot]++
		stones--
	}

	return slot
}

func applyLandingRule(state *entity.GameState, landing int, player string) {
	ownStore := entity.StoreOf(player)

	if landing == ownStore {
		state.StatusMessage = entity.ExtraTurnMessage(player)
		return
	}

	state.CurrentPlayer = entity.Opponent(player)

	opposite := 12 - landing
	if entity.IsOwnPit(player, landing) && state.Board[landing] == 1 && state.Board[opposite] > 0 {
		captured := state.Board[opposite] + 1
		state.Board[opposite] = 0
		state.Board[landing] = 0
		state.Board[ownStore] += captured
		state.StatusMessage = entity.CaptureMessage(player, captured)
		return
	}

	state.StatusMessage = entity.TurnMessage(state.CurrentPlayer)
}

// checkGameOver - once either row is empty, sweeps both rows into their owners' stores and
// determines the winner.
func checkGameOver(state *entity.GameState) {
	if state.Board.PitsSum(entity.PlayerA) > 0 && state.Board.PitsSum(entity.PlayerB) > 0 {
		return
	}

	for _, player := range []string{entity.PlayerA, entity.PlayerB} {
		state.Board[entity.StoreOf(player)] += state.Board.PitsSum(player)

		first := entity.FirstPit(player)
		for pit := first; pit < first+entity.PitsPerPlayer; pit++ {
			state.Board[pit] = 0
		}
	}

	storeA, storeB := state.Board[entity.StoreA], state.Board[entity.StoreB]
	switch {
	case storeA > storeB:
		state.Winner = entity.PlayerA
	case storeB > storeA:
		state.Winner = entity.PlayerB
	default:
		state.Winner = entity.WinnerTie
	}

	state.GameOver = true
	state.StatusMessage = entity.WinnerMessage(state.Winner)
}
