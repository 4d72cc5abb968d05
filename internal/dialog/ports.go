package dialog

import (
	"context"
	"time"

	"github.com/agencybot/whatsapp-catalog-bot/internal/session"
)

// Messenger — outbound delivery. Buttons beyond the channel's maximum
// are truncated by the implementation, never an error.
type Messenger interface {
	Send(ctx context.Context, to, text string, buttons ...string) error
}

// SessionStore — persistence for the per-user session record.
type SessionStore interface {
	Load(ctx context.Context, key string) (*session.Session, error)
	Save(ctx context.Context, key string, s *session.Session, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
	RefreshTTL(ctx context.Context, key string, ttl time.Duration) error
}

// Committer — transactional order submission.
type Committer interface {
	Commit(ctx context.Context, s *session.Session) (string, error)
}
