// Package ticketing owns the ticket ledger: event administration, ticket
// purchase behind the capacity and duplicate-purchase guards, and the
// tickets_sold cache that is always rebuilt from the ledger.
package ticketing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rodetes-party/rodetes/internal/queue"
	"github.com/rodetes-party/rodetes/internal/store"
)

// Service bundles the store and collaborators used by ticket operations.
// Now and NewID may be replaced in tests.
type Service struct {
	Store          store.Store
	Publisher      queue.Publisher
	Log            logrus.FieldLogger
	AllowedDomains []string

	Now   func() time.Time
	NewID func() string
}

// NewService constructs a Service and panics if the store is nil.  A nil
// publisher disables event publishing.
func NewService(st store.Store, pub queue.Publisher, log logrus.FieldLogger, allowedDomains []string) *Service {
	if st == nil {
		panic("nil store passed to ticketing.NewService")
	}
	if pub == nil {
		pub = queue.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		Store:          st,
		Publisher:      pub,
		Log:            log,
		AllowedDomains: allowedDomains,
		Now:            func() time.Time { return time.Now().UTC() },
		NewID:          uuid.NewString,
	}
}

// publish sends ev after a commit.  Failures are logged only: the ledger
// write already happened and must not be reported as failed.
func (s *Service) publish(ctx context.Context, ev queue.Event) {
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).WithField("queue", ev.RoutingKey()).Warn("publish failed")
	}
}
