package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/database"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WriteBackTask persists a resolved symbol onto its record
type WriteBackTask struct {
	RecordID uuid.UUID
	Name     string
	Symbol   string
}

// WriteBackQueue runs symbol write-backs off the request path.
// Enqueue never blocks. A full queue drops the task.
type WriteBackQueue struct {
	store   database.RecordStore
	tasks   chan WriteBackTask
	timeout time.Duration
	metrics *shared.ServiceMetrics

	mutex  sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWriteBackQueue starts the configured number of workers
func NewWriteBackQueue(store database.RecordStore, config shared.WriteBackConfig) *WriteBackQueue {
	q := &WriteBackQueue{
		store:   store,
		tasks:   make(chan WriteBackTask, config.QueueSize),
		timeout: config.Timeout,
		metrics: shared.NewServiceMetrics("WriteBackQueue"),
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	logrus.WithFields(logrus.Fields{
		"component":  "WriteBackQueue",
		"workers":    workers,
		"queue_size": config.QueueSize,
	}).Info("Write-back queue started")

	return q
}

// Enqueue schedules a task and reports whether it was accepted
func (q *WriteBackQueue) Enqueue(task WriteBackTask) bool {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	if q.closed {
		q.metrics.IncrementCounter("dropped")
		return false
	}

	select {
	case q.tasks <- task:
		q.metrics.IncrementCounter("enqueued")
		return true
	default:
		q.metrics.IncrementCounter("dropped")
		logrus.WithFields(logrus.Fields{
			"component": "WriteBackQueue",
			"record_id": task.RecordID,
			"symbol":    task.Symbol,
		}).Warn("Write-back queue full, dropping task")
		return false
	}
}

func (q *WriteBackQueue) worker(id int) {
	defer q.wg.Done()
	for task := range q.tasks {
		q.process(task)
	}
	logrus.WithFields(logrus.Fields{
		"component": "WriteBackQueue",
		"worker":    id,
	}).Debug("Write-back worker stopped")
}

func (q *WriteBackQueue) process(task WriteBackTask) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	symbol := task.Symbol
	err := q.store.UpdateFields(ctx, task.RecordID, database.RecordUpdate{ResolvedSymbol: &symbol})
	q.metrics.RecordRequest(err == nil, time.Since(start))

	if err != nil {
		q.metrics.IncrementCounter("failed")
		shared.NewServiceError(
			shared.ErrorCategoryWriteBack,
			"SYMBOL_WRITE_BACK_FAILED",
			fmt.Sprintf("failed to persist symbol %s for %q: %v", task.Symbol, task.Name, err),
			"WriteBackQueue",
			"process",
			false,
			err,
		).WithDetails(map[string]any{"record_id": task.RecordID.String()}).LogError()
		return
	}

	q.metrics.IncrementCounter("persisted")
	logrus.WithFields(logrus.Fields{
		"component": "WriteBackQueue",
		"record_id": task.RecordID,
		"name":      task.Name,
		"symbol":    task.Symbol,
	}).Debug("Persisted resolved symbol")
}

// Pending returns the number of queued tasks
func (q *WriteBackQueue) Pending() int {
	return len(q.tasks)
}

// Metrics exposes queue counters
func (q *WriteBackQueue) Metrics() *shared.ServiceMetrics {
	return q.metrics
}

// Close stops accepting tasks and waits until queued tasks are processed
func (q *WriteBackQueue) Close() {
	q.mutex.Lock()
	if q.closed {
		q.mutex.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mutex.Unlock()

	q.wg.Wait()
	logrus.WithField("component", "WriteBackQueue").Info("Write-back queue drained")
}
