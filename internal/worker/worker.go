package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/job"
	"github.com/akolanti/CyberScholar/internal/metrics"
	"github.com/akolanti/CyberScholar/internal/rag"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var (
	_jobService        *job.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             = logger_i.NewLogger("WorkerPool")
	_ragService        rag.QueryService
	minWorkerCount     = config.MinWorkerCount
	idleWorkerTimeout  = config.IdleWorkerTimeout
	jobTimeout         = config.JobTimeout
)

func InitServices(jobService *job.Service, ragService rag.QueryService) {
	_jobService = jobService
	_ragService = ragService
	dispatcherChannel = jobService.DispatcherChannel
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger.Info("Initializing worker pool")
	createWorker()
	go dispatcher(dispatcherChannel, stopWorkerChannel)
}

func dispatcher(signals <-chan bool, stop <-chan bool) {
	logger.Info("Dispatcher started")
	for {
		select {
		case _, ok := <-signals:
			if !ok {
				return
			}
			if atomic.LoadInt64(&currentWorkerCount) < config.MaxWorkerCount {
				logger.Info("Creating new worker", "workerCount", atomic.LoadInt64(&currentWorkerCount))
				createWorker()
			}
		case <-stop:
			return
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go worker()
	logger.Info("Created new worker")
}

func worker() {
	idle := time.NewTimer(idleWorkerTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			executeJob(currentJob)
			idle.Reset(idleWorkerTimeout)

		case <-stopWorkerChannel:
			atomic.AddInt64(&currentWorkerCount, -1)
			removeWorker("Stop worker signal received")
			return

		case <-idle.C:
			if tryRetire() {
				removeWorker("Idle worker timeout")
				return
			}
			idle.Reset(idleWorkerTimeout)
		}
	}
}

// tryRetire lets an idle worker go only while the pool stays above its floor
func tryRetire() bool {
	for {
		current := atomic.LoadInt64(&currentWorkerCount)
		if current <= atomic.LoadInt64(&minWorkerCount) {
			return false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, current, current-1) {
			return true
		}
	}
}
