package usecase

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	RoomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeGenerator produces a candidate room code. Uniqueness is checked by the store.
type CodeGenerator func() (string, error)

// NewRoomCode returns RoomCodeLength random characters from [A-Z0-9].
func NewRoomCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(roomCodeAlphabet)))

	var code strings.Builder
	code.Grow(RoomCodeLength)

	for range RoomCodeLength {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to read random index: %w", err)
		}

		code.WriteByte(roomCodeAlphabet[n.Int64()])
	}

	return code.String(), nil
}

// NormalizeRoomCode makes codes typed by hand match generated ones.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
