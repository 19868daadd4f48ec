package websocket

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/mancala-backend/internal/entity"
	"github.com/rocketscienceinc/mancala-backend/internal/observability"
)

func (that *Server) handleCreateRoom(ctx context.Context, _ *Message, conn *connection) error {
	log := that.logger.With("method", "handleCreateRoom", "participant", conn.id)

	room, err := that.store.CreateSession(ctx, conn.id)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	observability.SetSessionsActive(that.store.Count())

	payload := roomPayload(room)
	payload.Seat = entity.PlayerA
	payload.SeatCount = room.SeatCount

	that.sendMessage(conn, actionRoomCreated, payload)

	log.Info("room created", "code", room.Code)

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleJoinRoom", "participant", conn.id)

	req, err := decodePayload(msg, true, false)
	if err != nil {
		return err
	}

	room, err := that.store.JoinSession(ctx, req.Code, conn.id)
	if err != nil {
		return fmt.Errorf("failed to join room %s: %w", req.Code, err)
	}

	joined := roomPayload(room)
	joined.Seat = room.SeatOf(conn.id)
	joined.SeatCount = room.SeatCount
	that.sendMessage(conn, actionRoomJoined, joined)

	if opponent := room.Other(conn.id); opponent != "" && joined.Seat == entity.PlayerB {
		that.sendTo(opponent, actionOpponentJoined, ResponsePayload{Code: room.Code, SeatCount: room.SeatCount})
	}

	that.broadcast(room)

	log.Info("player joined room", "code", room.Code)

	return nil
}

func (that *Server) handleMove(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleMove", "participant", conn.id)

	req, err := decodePayload(msg, true, true)
	if err != nil {
		return err
	}

	room, err := that.store.ApplyMove(ctx, req.Code, *req.PitIndex, conn.id)
	if err != nil {
		return fmt.Errorf("failed to move pit %d in room %s: %w", *req.PitIndex, req.Code, err)
	}

	that.broadcast(room)

	if room.State.GameOver {
		observability.RecordGameFinished(room.State.Winner)
		log.Info("game finished", "code", room.Code, "winner", room.State.Winner)
	}

	return nil
}

func (that *Server) handleReset(ctx context.Context, msg *Message, conn *connection) error {
	req, err := decodePayload(msg, true, false)
	if err != nil {
		return err
	}

	room, err := that.store.ResetSession(ctx, req.Code)
	if err != nil {
		return fmt.Errorf("failed to reset room %s: %w", req.Code, err)
	}

	that.broadcast(room)

	that.logger.Info("room reset", "method", "handleReset", "participant", conn.id, "code", room.Code)

	return nil
}

// handleState resends the current state to the requester only.
func (that *Server) handleState(ctx context.Context, msg *Message, conn *connection) error {
	req, err := decodePayload(msg, true, false)
	if err != nil {
		return err
	}

	room, err := that.store.GetRoom(ctx, req.Code)
	if err != nil {
		return fmt.Errorf("failed to get room %s: %w", req.Code, err)
	}

	that.sendUpdate(conn, room)

	return nil
}
