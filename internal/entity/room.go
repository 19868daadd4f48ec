package entity

const (
	PhaseLobby    = "lobby"
	PhaseActive   = "active"
	PhaseFinished = "finished"
)

// Room is a point-in-time copy of a live session. Seats hold participant handles, never connections.
type Room struct {
	Code      string    `json:"code"`
	SeatA     string    `json:"-"`
	SeatB     string    `json:"-"`
	SeatCount int       `json:"seat_count"`
	State     GameState `json:"state"`
	Version   uint64    `json:"version"`
}

func (that Room) Phase() string {
	switch {
	case that.SeatCount < 2:
		return PhaseLobby
	case that.State.GameOver:
		return PhaseFinished
	default:
		return PhaseActive
	}
}

// SeatOf returns the player bound to the participant, or "" when it holds no seat.
func (that Room) SeatOf(participantID string) string {
	switch {
	case participantID == "":
		return ""
	case that.SeatA == participantID:
		return PlayerA
	case that.SeatB == participantID:
		return PlayerB
	default:
		return ""
	}
}

// Participants returns the handles of the occupied seats, A first.
func (that Room) Participants() []string {
	participants := make([]string, 0, 2)
	if that.SeatA != "" {
		participants = append(participants, that.SeatA)
	}
	if that.SeatB != "" {
		participants = append(participants, that.SeatB)
	}

	return participants
}

// Other returns the handle seated opposite the participant.
func (that Room) Other(participantID string) string {
	switch that.SeatOf(participantID) {
	case PlayerA:
		return that.SeatB
	case PlayerB:
		return that.SeatA
	default:
		return ""
	}
}
