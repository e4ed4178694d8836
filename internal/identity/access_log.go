package identity

import (
	"context"

	"github.com/google/uuid"
	"server-identity/internal/schemas"
)

const maxAccessLogURLLength = 255

// RecordAccess stores an access log entry for a finished authenticated request. The entry
// carries the session epoch the request authenticated with.
func (s *Service) RecordAccess(ctx context.Context, entry *schemas.AccessLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.UserAgent == "" {
		entry.UserAgent = "-"
	}
	if runes := []rune(entry.URL); len(runes) > maxAccessLogURLLength {
		entry.URL = string(runes[:maxAccessLogURLLength])
	}
	entry.CreatedAt = s.now()

	return s.store.CreateAccessLog(ctx, entry)
}

// AccessLogs returns the access log of the user, oldest first.
func (s *Service) AccessLogs(ctx context.Context, user *schemas.User) ([]schemas.AccessLog, error) {
	return s.store.ListAccessLogs(ctx, user.ID)
}
