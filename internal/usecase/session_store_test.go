package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/mancala-backend/internal/apperror"
	"github.com/rocketscienceinc/mancala-backend/internal/entity"
	"github.com/rocketscienceinc/mancala-backend/testing/suite"
)

var errRedisDown = errors.New("redis down")

type mockCodeRegistry struct {
	mock.Mock
}

func (that *mockCodeRegistry) Reserve(ctx context.Context, code, owner string) (bool, error) {
	args := that.Called(ctx, code, owner)
	return args.Bool(0), args.Error(1)
}

func (that *mockCodeRegistry) Release(ctx context.Context, code string) error {
	return that.Called(ctx, code).Error(0)
}

// sequence returns the given codes in order, then keeps repeating the last one.
func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0

	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()

		code := codes[i]
		if i < len(codes)-1 {
			i++
		}

		return code, nil
	}
}

func newStore(opts ...Option) *SessionStore {
	return NewSessionStore(suite.NewLogger(), opts...)
}

// newActiveRoom creates a room and seats a second participant.
func newActiveRoom(t *testing.T, store *SessionStore) entity.Room {
	t.Helper()

	ctx := context.Background()

	room, err := store.CreateSession(ctx, "alice")
	require.NoError(t, err)

	room, err = store.JoinSession(ctx, room.Code, "bob")
	require.NoError(t, err)

	return room
}

func TestSessionStore_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a lobby with the creator in seat A", func(t *testing.T) {
		store := newStore()

		// When: a participant creates a room
		room, err := store.CreateSession(ctx, "alice")

		// Then: the room is a lobby with a fresh game
		require.NoError(t, err)
		assert.Len(t, room.Code, RoomCodeLength)
		assert.Regexp(t, "^[A-Z0-9]{6}$", room.Code)
		assert.Equal(t, "alice", room.SeatA)
		assert.Empty(t, room.SeatB)
		assert.Equal(t, 1, room.SeatCount)
		assert.Equal(t, entity.PhaseLobby, room.Phase())
		assert.Equal(t, entity.NewGameState(), room.State)
		assert.Equal(t, 1, store.Count())
	})

	t.Run("Retries when the code is already live", func(t *testing.T) {
		// Given: a generator that repeats its first code once
		store := newStore(WithCodeGenerator(sequence("AAAAAA", "AAAAAA", "BBBBBB")))

		first, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		// When: a second room is created
		second, err := store.CreateSession(ctx, "carol")

		// Then: the collision is retried and both rooms have distinct codes
		require.NoError(t, err)
		assert.Equal(t, "AAAAAA", first.Code)
		assert.Equal(t, "BBBBBB", second.Code)
		assert.Equal(t, 2, store.Count())
	})

	t.Run("Gives up after the configured attempts", func(t *testing.T) {
		store := newStore(WithCodeGenerator(sequence("AAAAAA")), WithMaxCodeAttempts(3))

		_, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		// When: every candidate collides
		_, err = store.CreateSession(ctx, "carol")

		// Then: the store reports exhaustion, never the internal collision
		require.ErrorIs(t, err, apperror.ErrRoomCodesExhausted)
		assert.NotErrorIs(t, err, apperror.ErrRoomCodeCollision)
		assert.Equal(t, apperror.CodeInternal, apperror.Code(err))
		assert.Equal(t, 1, store.Count())
	})

	t.Run("Rejects an empty participant", func(t *testing.T) {
		store := newStore()

		_, err := store.CreateSession(ctx, "")

		require.ErrorIs(t, err, apperror.ErrBadRequest)
		assert.Zero(t, store.Count())
	})

	t.Run("Codes reserved in the registry are skipped", func(t *testing.T) {
		// Given: a registry where AAAAAA belongs to another process
		registry := &mockCodeRegistry{}
		registry.On("Reserve", mock.Anything, "AAAAAA", "alice").Return(false, nil).Once()
		registry.On("Reserve", mock.Anything, "BBBBBB", "alice").Return(true, nil).Once()

		store := newStore(WithCodeGenerator(sequence("AAAAAA", "BBBBBB")), WithCodeRegistry(registry))

		// When: a room is created
		room, err := store.CreateSession(ctx, "alice")

		// Then: the next free code is used
		require.NoError(t, err)
		assert.Equal(t, "BBBBBB", room.Code)
		registry.AssertExpectations(t)
	})

	t.Run("Registry failure is an internal error", func(t *testing.T) {
		registry := &mockCodeRegistry{}
		registry.On("Reserve", mock.Anything, mock.Anything, "alice").Return(false, errRedisDown).Once()

		store := newStore(WithCodeRegistry(registry))

		_, err := store.CreateSession(ctx, "alice")

		require.ErrorIs(t, err, errRedisDown)
		assert.False(t, apperror.IsRejection(err))
		assert.Zero(t, store.Count())
	})
}

func TestSessionStore_JoinSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Second participant takes seat B and starts the game", func(t *testing.T) {
		store := newStore()
		created, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		// When: bob joins with the code
		room, err := store.JoinSession(ctx, created.Code, "bob")

		// Then: both seats are taken and the game is active
		require.NoError(t, err)
		assert.Equal(t, "alice", room.SeatA)
		assert.Equal(t, "bob", room.SeatB)
		assert.Equal(t, 2, room.SeatCount)
		assert.Equal(t, entity.PhaseActive, room.Phase())
		assert.Equal(t, entity.PlayerB, room.SeatOf("bob"))
		assert.Greater(t, room.Version, created.Version)
	})

	t.Run("Codes are matched case-insensitively", func(t *testing.T) {
		store := newStore(WithCodeGenerator(sequence("ABC123")))
		_, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		room, err := store.JoinSession(ctx, " abc123 ", "bob")

		require.NoError(t, err)
		assert.Equal(t, "ABC123", room.Code)
	})

	t.Run("Unknown code", func(t *testing.T) {
		store := newStore()

		_, err := store.JoinSession(ctx, "NOPE00", "bob")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Third participant is turned away", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		// When: a third participant joins
		rejected, err := store.JoinSession(ctx, room.Code, "carol")

		// Then: the room is full and unchanged
		require.ErrorIs(t, err, apperror.ErrRoomFull)
		assert.Equal(t, room, rejected)
	})

	t.Run("Re-joining an own seat changes nothing", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		again, err := store.JoinSession(ctx, room.Code, "alice")

		require.NoError(t, err)
		assert.Equal(t, room, again)
	})
}

func TestSessionStore_ApplyMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Seat A plays the opening move", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		// When: alice (A) plays pit 0
		moved, err := store.ApplyMove(ctx, room.Code, 0, "alice")

		// Then: the board is sown and the turn passes to B
		require.NoError(t, err)
		assert.Equal(t, entity.Board{0, 5, 5, 5, 5, 4, 0, 4, 4, 4, 4, 4, 4, 0}, moved.State.Board)
		assert.Equal(t, entity.PlayerB, moved.State.CurrentPlayer)
		assert.Equal(t, room.Version+1, moved.Version)

		state, err := store.GetState(ctx, room.Code)
		require.NoError(t, err)
		assert.Equal(t, moved.State, state)
	})

	t.Run("Rule rejections leave the room untouched", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		// When: bob moves out of turn
		rejected, err := store.ApplyMove(ctx, room.Code, 7, "bob")

		// Then: NOT_YOUR_TURN and the stored room is unchanged
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, room, rejected)

		current, err := store.GetRoom(ctx, room.Code)
		require.NoError(t, err)
		assert.Equal(t, room, current)
	})

	t.Run("Participant without a seat", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		_, err := store.ApplyMove(ctx, room.Code, 0, "mallory")

		require.ErrorIs(t, err, apperror.ErrNotSeated)
	})

	t.Run("Moves in the lobby are rejected", func(t *testing.T) {
		store := newStore()
		room, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		_, err = store.ApplyMove(ctx, room.Code, 0, "alice")

		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Unknown room", func(t *testing.T) {
		store := newStore()

		_, err := store.ApplyMove(ctx, "NOPE00", 0, "alice")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Racing moves never lose an update", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		// When: both seats hammer the room concurrently with every pit
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)

		for _, participant := range []string{"alice", "bob"} {
			wg.Add(1)

			go func(participant string) {
				defer wg.Done()

				for round := 0; round < 50; round++ {
					for pit := 0; pit < entity.SlotCount; pit++ {
						if _, err := store.ApplyMove(ctx, room.Code, pit, participant); err == nil {
							mu.Lock()
							accepted++
							mu.Unlock()
						}
					}
				}
			}(participant)
		}

		wg.Wait()

		// Then: every accepted move bumped the version exactly once and stones are conserved
		final, err := store.GetRoom(ctx, room.Code)
		require.NoError(t, err)
		assert.Equal(t, room.Version+uint64(accepted), final.Version)
		assert.Equal(t, entity.TotalStones, final.State.Board.Sum())
	})
}

func TestSessionStore_ResetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Reset restores the opening position and keeps seats", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		_, err := store.ApplyMove(ctx, room.Code, 0, "alice")
		require.NoError(t, err)

		// When: the room is reset
		reset, err := store.ResetSession(ctx, room.Code)

		// Then: fresh state, same seats
		require.NoError(t, err)
		assert.Equal(t, entity.NewGameState(), reset.State)
		assert.Equal(t, "alice", reset.SeatA)
		assert.Equal(t, "bob", reset.SeatB)
		assert.Equal(t, room.Version+2, reset.Version)
	})

	t.Run("Unknown room", func(t *testing.T) {
		store := newStore()

		_, err := store.ResetSession(ctx, "NOPE00")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestSessionStore_RemoveParticipant(t *testing.T) {
	ctx := context.Background()

	t.Run("Leaving tears the room down", func(t *testing.T) {
		store := newStore()
		room := newActiveRoom(t, store)

		// When: bob disconnects
		removed := store.RemoveParticipant(ctx, "bob")

		// Then: the room is gone and its last snapshot names the remaining seat
		require.Len(t, removed, 1)
		assert.Equal(t, room.Code, removed[0].Code)
		assert.Equal(t, "alice", removed[0].Other("bob"))
		assert.Zero(t, store.Count())

		_, err := store.ApplyMove(ctx, room.Code, 0, "alice")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)

		_, err = store.JoinSession(ctx, room.Code, "carol")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Removes every room of the participant only", func(t *testing.T) {
		store := newStore()

		_, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)
		_, err = store.CreateSession(ctx, "alice")
		require.NoError(t, err)
		other, err := store.CreateSession(ctx, "carol")
		require.NoError(t, err)

		removed := store.RemoveParticipant(ctx, "alice")

		assert.Len(t, removed, 2)
		assert.Equal(t, 1, store.Count())

		_, err = store.GetRoom(ctx, other.Code)
		require.NoError(t, err)
	})

	t.Run("Unknown participant is a no-op", func(t *testing.T) {
		store := newStore()
		newActiveRoom(t, store)

		assert.Empty(t, store.RemoveParticipant(ctx, "nobody"))
		assert.Empty(t, store.RemoveParticipant(ctx, ""))
		assert.Equal(t, 1, store.Count())
	})

	t.Run("Released codes go back to the registry", func(t *testing.T) {
		registry := &mockCodeRegistry{}
		registry.On("Reserve", mock.Anything, "AAAAAA", "alice").Return(true, nil).Once()
		registry.On("Release", mock.Anything, "AAAAAA").Return(errRedisDown).Once()

		store := newStore(WithCodeGenerator(sequence("AAAAAA")), WithCodeRegistry(registry))

		_, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		// When: the creator leaves and the registry is unavailable
		removed := store.RemoveParticipant(ctx, "alice")

		// Then: the room is still torn down locally
		assert.Len(t, removed, 1)
		assert.Zero(t, store.Count())
		registry.AssertExpectations(t)
	})
}

func TestNewRoomCode(t *testing.T) {
	seen := make(map[string]struct{})

	for range 100 {
		code, err := NewRoomCode()
		require.NoError(t, err)
		require.Regexp(t, "^[A-Z0-9]{6}$", code)

		seen[code] = struct{}{}
	}

	// 36^6 candidates; 100 draws colliding more than once would mean a broken generator
	assert.GreaterOrEqual(t, len(seen), 99)
}
