package store

import (
	"context"

	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/domain/lockModel"
)

type Stores struct {
	Jobs      jobModel.JobStore
	Messages  jobModel.MessageStore
	Documents commonModels.DocumentStore
	Locks     lockModel.LockStore
	Audit     commonModels.AuditStore
	Sessions  lockModel.SessionStore
	Redis     bool
}

// Open connects every store to redis. If any DB is unreachable all of them fall back
// to memory, so related records never end up split across backends.
func Open(ctx context.Context) Stores {
	jobs := GetRedisJobStore(ctx)
	messages := GetRedisMessageStore(ctx)
	documents := GetRedisDocumentStore(ctx)
	locks := GetRedisLockStore(ctx)
	audit := GetRedisAuditStore(ctx)
	sessions := GetRedisSessionStore(ctx)

	if jobs == nil || messages == nil || documents == nil || locks == nil || audit == nil || sessions == nil {
		inMemLogger.Error("Redis stores are offline, falling back to in-memory stores")
		return InMemory()
	}
	return Stores{
		Jobs:      jobs,
		Messages:  messages,
		Documents: documents,
		Locks:     locks,
		Audit:     audit,
		Sessions:  sessions,
		Redis:     true,
	}
}

func InMemory() Stores {
	return Stores{
		Jobs:      InitInMemoryJobStore(),
		Messages:  InitMessageStore(),
		Documents: InitInMemoryDocumentStore(),
		Locks:     InitInMemoryLockStore(),
		Audit:     InitInMemoryAuditStore(),
		Sessions:  InitInMemorySessionStore(),
	}
}
