package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type (
	// Store persists session values between requests.
	Store interface {
		// Load returns ErrNotFound when id is unknown (or expired).
		Load(ctx context.Context, id string) (map[string]interface{}, error)
		Save(ctx context.Context, id string, data map[string]interface{}) error
		Delete(ctx context.Context, id string) error
	}

	CorruptedSession struct {
		ID    string
		cause error
	}
)

var (
	ErrNotFound = errors.New("session not found")
)

func (c CorruptedSession) Error() string {
	return fmt.Sprintf("session %v cannot be decoded, cause %v", c.ID, c.cause)
}

func (c CorruptedSession) Unwrap() error {
	return c.cause
}

func encode(data map[string]interface{}) ([]byte, error) {
	return json.Marshal(data)
}

func decode(id string, buf []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, CorruptedSession{ID: id, cause: err}
	}
	return out, nil
}
