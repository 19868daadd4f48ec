package entity

import "fmt"

const (
	PlayerA = "A"
	PlayerB = "B"

	WinnerTie  = "tie"
	WinnerNone = ""
)

// Board layout: 0-5 are A's pits, 6 is A's store, 7-12 are B's pits, 13 is B's store.
const (
	SlotCount     = 14
	PitsPerPlayer = 6
	StonesPerPit  = 4

	StoreA = 6
	StoreB = 13

	TotalStones = 2 * PitsPerPlayer * StonesPerPit
)

// Board holds the stone count of every slot. It is an array, so assignment copies it.
type Board [SlotCount]int

type GameState struct {
	Board         Board  `json:"board"`
	CurrentPlayer string `json:"current_player"`
	GameOver      bool   `json:"game_over"`
	Winner        string `json:"winner"`
	StatusMessage string `json:"status_message"`
}

func NewBoard() Board {
	var board Board
	for i := range board {
		if i != StoreA && i != StoreB {
			board[i] = StonesPerPit
		}
	}

	return board
}

func NewGameState() GameState {
	return GameState{
		Board:         NewBoard(),
		CurrentPlayer: PlayerA,
		Winner:        WinnerNone,
		StatusMessage: TurnMessage(PlayerA),
	}
}

func (that Board) Sum() int {
	total := 0
	for _, stones := range that {
		total += stones
	}

	return total
}

// PitsSum returns the number of stones left in the player's six pits.
func (that Board) PitsSum(player string) int {
	first := FirstPit(player)

	total := 0
	for i := first; i < first+PitsPerPlayer; i++ {
		total += that[i]
	}

	return total
}

func FirstPit(player string) int {
	if player == PlayerB {
		return StoreA + 1
	}

	return 0
}

func StoreOf(player string) int {
	if player == PlayerB {
		return StoreB
	}

	return StoreA
}

func Opponent(player string) string {
	if player == PlayerA {
		return PlayerB
	}

	return PlayerA
}

// IsOwnPit reports whether slot is one of the player's six pits.
func IsOwnPit(player string, slot int) bool {
	first := FirstPit(player)

	return slot >= first && slot < first+PitsPerPlayer
}

func IsValidPlayer(player string) bool {
	return player == PlayerA || player == PlayerB
}

func TurnMessage(player string) string {
	return fmt.Sprintf("PLAYER %s TURN", player)
}

func ExtraTurnMessage(player string) string {
	return fmt.Sprintf("PLAYER %s GOES AGAIN!", player)
}

func CaptureMessage(player string, stones int) string {
	return fmt.Sprintf("PLAYER %s CAPTURED %d STONES!", player, stones)
}

func WinnerMessage(winner string) string {
	if winner == WinnerTie {
		return "IT'S A TIE!"
	}

	return fmt.Sprintf("PLAYER %s WINS!", winner)
}
