package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/mancala-backend/internal/apperror"
	"github.com/rocketscienceinc/mancala-backend/internal/entity"
	"github.com/rocketscienceinc/mancala-backend/internal/observability"
)

// Inbound actions.
const (
	actionRoomCreate = "room:create"
	actionRoomJoin   = "room:join"
	actionGameMove   = "game:move"
	actionGameReset  = "game:reset"
	actionGameState  = "game:state"
)

// Outbound actions.
const (
	actionRoomCreated          = "room:created"
	actionRoomJoined           = "room:joined"
	actionOpponentJoined       = "room:opponent_joined"
	actionOpponentDisconnected = "room:opponent_disconnected"
	actionGameUpdate           = "game:update"
	actionError                = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RequestPayload struct {
	Code     string `json:"code,omitempty"`
	PitIndex *int   `json:"pit_index,omitempty"`
}

type ResponsePayload struct {
	Code      string            `json:"code,omitempty"`
	State     *entity.GameState `json:"state,omitempty"`
	Seat      string            `json:"seat,omitempty"`
	SeatCount int               `json:"seat_count,omitempty"`
	Version   uint64            `json:"version,omitempty"`

	// set on error responses only
	Request string `json:"request,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

var errMissingField = errors.New("missing field")

// decodePayload reads the request payload and checks the fields the action needs.
func decodePayload(msg *Message, needCode, needPit bool) (RequestPayload, error) {
	var payload RequestPayload

	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return payload, fmt.Errorf("failed to unmarshal payload: %w: %w", apperror.ErrBadRequest, err)
		}
	}

	if needCode && payload.Code == "" {
		return payload, fmt.Errorf("%w code: %w", errMissingField, apperror.ErrBadRequest)
	}

	if needPit && payload.PitIndex == nil {
		return payload, fmt.Errorf("%w pit_index: %w", errMissingField, apperror.ErrBadRequest)
	}

	return payload, nil
}

func roomPayload(room entity.Room) ResponsePayload {
	state := room.State

	return ResponsePayload{
		Code:    room.Code,
		State:   &state,
		Version: room.Version,
	}
}

func encode(action string, payload ResponsePayload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	frame, err := json.Marshal(Message{Action: action, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return frame, nil
}

func (that *Server) sendMessage(conn *connection, action string, payload ResponsePayload) {
	frame, err := encode(action, payload)
	if err != nil {
		that.logger.Error("failed to encode message", "action", action, "error", err)
		return
	}

	conn.enqueue(frame)
}

// sendTo delivers to a participant if it is still connected.
func (that *Server) sendTo(participantID, action string, payload ResponsePayload) {
	conn, ok := that.connection(participantID)
	if !ok {
		return
	}

	that.sendMessage(conn, action, payload)
}

// sendUpdate delivers a game:update to one connection, skipping it if a newer one went out first.
func (that *Server) sendUpdate(conn *connection, room entity.Room) {
	frame, err := encode(actionGameUpdate, roomPayload(room))
	if err != nil {
		that.logger.Error("failed to encode update", "code", room.Code, "error", err)
		return
	}

	if !conn.enqueueVersioned(room.Code, room.Version, frame) {
		that.logger.Debug("stale update dropped", "participant", conn.id, "code", room.Code, "version", room.Version)
	}
}

// broadcast sends the room state to every seated participant.
func (that *Server) broadcast(room entity.Room) {
	for _, participantID := range room.Participants() {
		conn, ok := that.connection(participantID)
		if !ok {
			that.logger.Warn("connection not found for participant", "participant", participantID, "code", room.Code)
			continue
		}

		that.sendUpdate(conn, room)
	}
}

// sendErrorResponse reports a failure to the requester only. Internal failures are not described.
func (that *Server) sendErrorResponse(conn *connection, request string, err error) {
	code := apperror.Code(err)
	observability.RecordRejection(code)

	message := "internal error"
	if code != apperror.CodeInternal {
		message = err.Error()
	}

	that.sendMessage(conn, actionError, ResponsePayload{
		Request: request,
		Error:   code,
		Message: message,
	})
}
