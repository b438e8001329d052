package job

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/store"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(buffer int) *Service {
	return InitJobService(ServiceConfig{
		JobChannel:        make(chan jobModel.Job, buffer),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      store.InitMessageStore(),
	})
}

func TestEnqueue_SavesAndQueues(t *testing.T) {
	s := newService(1)
	job := jobModel.Job{Id: "j1", OwnerId: "alice", Status: jobModel.JobStatusQueued}

	require.NoError(t, s.Enqueue(context.Background(), job))

	saved, found := s.JobStore.GetJob(context.Background(), "j1")
	require.True(t, found)
	assert.Equal(t, jobModel.JobStatusQueued, saved.Status)
	assert.Equal(t, "j1", (<-s.JobChannel).Id)
}

func TestEnqueue_FullQueueRespectsContext(t *testing.T) {
	s := newService(1)
	require.NoError(t, s.Enqueue(context.Background(), jobModel.Job{Id: "first"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Enqueue(ctx, jobModel.Job{Id: "second"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	saved, found := s.JobStore.GetJob(context.Background(), "second")
	require.True(t, found)
	assert.Equal(t, jobModel.JobStatusError, saved.Status)
	assert.Equal(t, http.StatusServiceUnavailable, saved.Error.Code)
	assert.True(t, saved.Error.Retry)
}

func TestEnqueue_SignalsDispatcherEveryNthRequest(t *testing.T) {
	s := newService(int(config.RequestsPerNewWorkerCount) * 2)

	for i := int64(1); i < config.RequestsPerNewWorkerCount; i++ {
		require.NoError(t, s.Enqueue(context.Background(), jobModel.Job{Id: "j"}))
	}
	assert.Len(t, s.DispatcherChannel, 0)

	require.NoError(t, s.Enqueue(context.Background(), jobModel.Job{Id: "j"}))
	assert.Len(t, s.DispatcherChannel, 1)

	// a pending signal is not stacked
	for i := int64(0); i < config.RequestsPerNewWorkerCount; i++ {
		require.NoError(t, s.Enqueue(context.Background(), jobModel.Job{Id: "j"}))
	}
	assert.Len(t, s.DispatcherChannel, 1)
}
