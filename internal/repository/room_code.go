package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomCodeKeyPrefix = "room:"

// RoomCodeRepository reserves room codes in Redis so that several relay processes sharing one Redis
// never hand out the same code.
type RoomCodeRepository interface {
	Reserve(ctx context.Context, code, owner string) (bool, error)
	Release(ctx context.Context, code string) error
	Owner(ctx context.Context, code string) (string, error)
}

type dbRoomCode struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCodeRepository - ttl bounds how long a reservation outlives a crashed process; 0 keeps it forever.
func NewRoomCodeRepository(client *redis.Client, ttl time.Duration) RoomCodeRepository {
	return &dbRoomCode{
		client: client,
		ttl:    ttl,
	}
}

// Reserve claims code for owner. It returns false when the code is already taken.
func (that *dbRoomCode) Reserve(ctx context.Context, code, owner string) (bool, error) {
	ok, err := that.client.SetNX(ctx, roomCodeKeyPrefix+code, owner, that.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve room code: %w", err)
	}

	return ok, nil
}

func (that *dbRoomCode) Release(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, roomCodeKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to release room code: %w", err)
	}

	return nil
}

// Owner returns who reserved code, or "" when it is free.
func (that *dbRoomCode) Owner(ctx context.Context, code string) (string, error) {
	owner, err := that.client.Get(ctx, roomCodeKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to get room code owner: %w", err)
	}

	return owner, nil
}
