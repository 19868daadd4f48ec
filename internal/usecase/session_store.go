package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/mancala-backend/internal/apperror"
	"github.com/rocketscienceinc/mancala-backend/internal/entity"
	"github.com/rocketscienceinc/mancala-backend/internal/mancala"
)

const DefaultMaxCodeAttempts = 32

// codeRegistry reserves codes outside this process, see repository.RoomCodeRepository.
type codeRegistry interface {
	Reserve(ctx context.Context, code, owner string) (bool, error)
	Release(ctx context.Context, code string) error
}

type session struct {
	mu     sync.Mutex
	room   entity.Room
	closed bool
}

// SessionStore owns every live room. The map is guarded by mu; each session guards its own room,
// so moves in different rooms never wait on each other. Lock order is store, then session.
type SessionStore struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session

	newCode         CodeGenerator
	registry        codeRegistry
	maxCodeAttempts int
}

type Option func(*SessionStore)

func WithCodeGenerator(generator CodeGenerator) Option {
	return func(that *SessionStore) {
		that.newCode = generator
	}
}

func WithCodeRegistry(registry codeRegistry) Option {
	return func(that *SessionStore) {
		that.registry = registry
	}
}

func WithMaxCodeAttempts(attempts int) Option {
	return func(that *SessionStore) {
		if attempts > 0 {
			that.maxCodeAttempts = attempts
		}
	}
}

func NewSessionStore(logger *slog.Logger, opts ...Option) *SessionStore {
	store := &SessionStore{
		logger:          logger.With("component", "session_store"),
		sessions:        make(map[string]*session),
		newCode:         NewRoomCode,
		maxCodeAttempts: DefaultMaxCodeAttempts,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// CreateSession opens a lobby with the participant in seat A.
func (that *SessionStore) CreateSession(ctx context.Context, participantID string) (entity.Room, error) {
	log := that.logger.With("method", "CreateSession", "participant", participantID)

	if participantID == "" {
		return entity.Room{}, fmt.Errorf("empty participant: %w", apperror.ErrBadRequest)
	}

	for attempt := 1; attempt <= that.maxCodeAttempts; attempt++ {
		code, err := that.newCode()
		if err != nil {
			return entity.Room{}, fmt.Errorf("failed to generate room code: %w", err)
		}

		room, err := that.insert(ctx, code, participantID)
		if errors.Is(err, apperror.ErrRoomCodeCollision) {
			log.Debug("room code collision, retrying", "code", code, "attempt", attempt)
			continue
		}

		if err != nil {
			return entity.Room{}, err
		}

		log.Info("room created", "code", room.Code)

		return room, nil
	}

	log.Error("room codes exhausted", "attempts", that.maxCodeAttempts)

	return entity.Room{}, apperror.ErrRoomCodesExhausted
}

func (that *SessionStore) insert(ctx context.Context, code, participantID string) (entity.Room, error) {
	if that.registry != nil {
		reserved, err := that.registry.Reserve(ctx, code, participantID)
		if err != nil {
			return entity.Room{}, fmt.Errorf("failed to reserve room code: %w", err)
		}

		if !reserved {
			return entity.Room{}, apperror.ErrRoomCodeCollision
		}
	}

	room := entity.Room{
		Code:      code,
		SeatA:     participantID,
		SeatCount: 1,
		State:     entity.NewGameState(),
		Version:   1,
	}

	that.mu.Lock()
	_, taken := that.sessions[code]
	if !taken {
		that.sessions[code] = &session{room: room}
	}
	that.mu.Unlock()

	if taken {
		// the registry lost track of a live code (expired ttl); keep the existing room's claim
		return entity.Room{}, apperror.ErrRoomCodeCollision
	}

	return room, nil
}

// JoinSession seats the participant in seat B. Joining a room the participant already sits in is a no-op.
func (that *SessionStore) JoinSession(_ context.Context, code, participantID string) (entity.Room, error) {
	if participantID == "" {
		return entity.Room{}, fmt.Errorf("empty participant: %w", apperror.ErrBadRequest)
	}

	room, err := that.update(code, func(room *entity.Room) (bool, error) {
		if room.SeatOf(participantID) != "" {
			return false, nil
		}

		if room.SeatCount >= 2 {
			return false, apperror.ErrRoomFull
		}

		room.SeatB = participantID
		room.SeatCount = 2

		return true, nil
	})
	if err != nil {
		return room, fmt.Errorf("failed to join room: %w", err)
	}

	that.logger.Info("room joined", "method", "JoinSession", "code", room.Code, "participant", participantID)

	return room, nil
}

// GetRoom returns a snapshot of the room.
func (that *SessionStore) GetRoom(_ context.Context, code string) (entity.Room, error) {
	room, err := that.update(code, func(*entity.Room) (bool, error) {
		return false, nil
	})
	if err != nil {
		return entity.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (that *SessionStore) GetState(ctx context.Context, code string) (entity.GameState, error) {
	room, err := that.GetRoom(ctx, code)
	if err != nil {
		return entity.GameState{}, err
	}

	return room.State, nil
}

// ApplyMove plays pitIndex for whichever seat the participant holds.
// On rejection the returned room is the unchanged current snapshot.
func (that *SessionStore) ApplyMove(_ context.Context, code string, pitIndex int, participantID string) (entity.Room, error) {
	room, err := that.update(code, func(room *entity.Room) (bool, error) {
		player := room.SeatOf(participantID)
		if player == "" {
			return false, apperror.ErrNotSeated
		}

		if room.Phase() == entity.PhaseLobby {
			return false, apperror.ErrGameIsNotStarted
		}

		next, err := mancala.ApplyMove(room.State, pitIndex, player)
		if err != nil {
			return false, err
		}

		room.State = next

		return true, nil
	})
	if err != nil {
		return room, fmt.Errorf("failed to apply move: %w", err)
	}

	if room.State.GameOver {
		that.logger.Info("game finished", "method", "ApplyMove", "code", room.Code, "winner", room.State.Winner)
	}

	return room, nil
}

// ResetSession puts the room back to the opening position. Seats are kept.
func (that *SessionStore) ResetSession(_ context.Context, code string) (entity.Room, error) {
	room, err := that.update(code, func(room *entity.Room) (bool, error) {
		room.State = entity.NewGameState()
		return true, nil
	})
	if err != nil {
		return room, fmt.Errorf("failed to reset room: %w", err)
	}

	return room, nil
}

// RemoveParticipant tears down every room the participant sits in and returns their final snapshots.
func (that *SessionStore) RemoveParticipant(ctx context.Context, participantID string) []entity.Room {
	if participantID == "" {
		return nil
	}

	var removed []entity.Room

	that.mu.Lock()
	for code, s := range that.sessions {
		s.mu.Lock()
		if s.room.SeatOf(participantID) != "" {
			s.closed = true
			removed = append(removed, s.room)
			delete(that.sessions, code)
		}
		s.mu.Unlock()
	}
	that.mu.Unlock()

	for _, room := range removed {
		that.release(ctx, room.Code)
		that.logger.Info("room closed", "method", "RemoveParticipant", "code", room.Code, "participant", participantID)
	}

	return removed
}

// Count returns the number of live rooms.
func (that *SessionStore) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}

func (that *SessionStore) release(ctx context.Context, code string) {
	if that.registry == nil {
		return
	}

	if err := that.registry.Release(ctx, code); err != nil {
		that.logger.Warn("failed to release room code", "code", code, "error", err)
	}
}

// update runs fn under the session lock. fn reports whether it changed the room; changes bump the version.
func (that *SessionStore) update(code string, fn func(room *entity.Room) (bool, error)) (entity.Room, error) {
	that.mu.RLock()
	s, ok := that.sessions[NormalizeRoomCode(code)]
	that.mu.RUnlock()

	if !ok {
		return entity.Room{}, apperror.ErrRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.Room{}, apperror.ErrRoomNotFound
	}

	changed, err := fn(&s.room)
	if err != nil {
		return s.room, err
	}

	if changed {
		s.room.Version++
	}

	return s.room, nil
}
