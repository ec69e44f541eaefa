// Package recent keeps a bounded, newest-first log of accepted transactions so
// operators can see what the bridge has published without consuming the queue.
package recent

import (
	"context"

	"github.com/pedrohpiress/banktransaction-queue/internal/models"
)

const DefaultLimit = 100

type Store interface {
	Add(ctx context.Context, entry models.RecentTransaction) error
	List(ctx context.Context) ([]models.RecentTransaction, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}
