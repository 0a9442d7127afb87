package gamification

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ===== Clock =====

type systemClock struct{}

// NewSystemClock returns a Clock implementation backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// ===== ID Generator =====

type uuidGenerator struct{}

// NewUUIDGenerator returns an IDGenerator that produces v7 UUIDs where available, falling back to v4.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// ===== Recorder =====

type nopRecorder struct{}

func (nopRecorder) PointsAwarded(string, int) {}
func (nopRecorder) AchievementUnlocked(string) {}
func (nopRecorder) LevelUp(int) {}
func (nopRecorder) ChallengeCompleted(string) {}
func (nopRecorder) RewardClaimed(string) {}

// ===== Page Token Helpers =====
//
// Point history cursors are URL-safe base64 of:
//   v1|<RFC3339Nano created_at>|<eventID>

const tokenVersion = "v1"

func encodePageToken(c Cursor) string {
	raw := strings.Join([]string{
		tokenVersion,
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.EventID,
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodePageToken parses a token produced by encodePageToken. An empty token yields nil.
func decodePageToken(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encoding", ErrInvalidPageToken)
	}
	parts := strings.Split(string(b), "|")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad format", ErrInvalidPageToken)
	}
	if parts[0] != tokenVersion {
		return nil, fmt.Errorf("%w: unsupported version %s", ErrInvalidPageToken, parts[0])
	}
	t, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidPageToken)
	}
	if strings.TrimSpace(parts[2]) == "" {
		return nil, errors.Join(ErrInvalidPageToken, errors.New("missing event id"))
	}
	return &Cursor{CreatedAt: t, EventID: parts[2]}, nil
}
