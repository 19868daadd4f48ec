package apperror

import "errors"

// Rule engine rejections.
var (
	ErrGameAlreadyOver = errors.New("game is already over")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrNotYourPit      = errors.New("pit does not belong to you")
	ErrEmptyPit        = errors.New("pit is empty")
)

// Session store rejections.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrNotSeated          = errors.New("you are not seated in this room")
	ErrGameIsNotStarted   = errors.New("game is not started")
	ErrRoomCodeCollision  = errors.New("room code already in use")
	ErrRoomCodesExhausted = errors.New("could not allocate a free room code")
)

var ErrBadRequest = errors.New("bad request")

const (
	CodeGameAlreadyOver = "GAME_ALREADY_OVER"
	CodeNotYourTurn     = "NOT_YOUR_TURN"
	CodeNotYourPit      = "NOT_YOUR_PIT"
	CodeEmptyPit        = "EMPTY_PIT"
	CodeRoomNotFound    = "ROOM_NOT_FOUND"
	CodeRoomFull        = "ROOM_FULL"
	CodeNotSeated       = "NOT_SEATED"
	CodeGameNotStarted  = "GAME_NOT_STARTED"
	CodeBadRequest      = "BAD_REQUEST"
	CodeInternal        = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrGameAlreadyOver, CodeGameAlreadyOver},
	{ErrNotYourTurn, CodeNotYourTurn},
	{ErrNotYourPit, CodeNotYourPit},
	{ErrEmptyPit, CodeEmptyPit},
	{ErrRoomNotFound, CodeRoomNotFound},
	{ErrRoomFull, CodeRoomFull},
	{ErrNotSeated, CodeNotSeated},
	{ErrGameIsNotStarted, CodeGameNotStarted},
	{ErrBadRequest, CodeBadRequest},
}

// Code maps an error to the code sent over the wire. Unknown errors are INTERNAL.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return CodeInternal
}

// IsRejection reports whether err is a requester-visible rejection rather than a server fault.
func IsRejection(err error) bool {
	return Code(err) != CodeInternal
}
