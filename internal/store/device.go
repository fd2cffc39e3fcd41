package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Duke0404/readersync/internal/errors"
)

const deviceIDKey = "meta:device-id"

// DeviceID returns this installation's stable identifier, generating and
// persisting one on first call. It is sent with uploads so the backend can
// tell devices apart in its access logs.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	s.mu.RLock()
	var id string
	err := s.get([]byte(deviceIDKey), &id)
	s.mu.RUnlock()

	if err == nil {
		return id, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return "", errors.Wrap(err, errors.CodeInternal, "load device id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock in case another caller won the race.
	if err := s.get([]byte(deviceIDKey), &id); err == nil {
		return id, nil
	}

	id = uuid.NewString()
	if err := s.set([]byte(deviceIDKey), id); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "persist device id")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "device id generated", "device_id", id)
	}
	return id, nil
}
