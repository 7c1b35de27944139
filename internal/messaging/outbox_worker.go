package messaging

import (
	"context"
	"log"
	"sync"
	"time"

	"accountability-service/internal/repository"
)

const (
	defaultWorkerInterval     = 1 * time.Second
	defaultBatchSize          = 50
	defaultCleanupInterval    = 1 * time.Hour
	defaultPublishedRetention = 24 * time.Hour
)

type OutboxOptions struct {
	Interval           time.Duration
	BatchSize          int
	CleanupInterval    time.Duration
	PublishedRetention time.Duration
}

// OutboxWorker relays outbox rows written alongside complaint changes to the
// broker. Delivery is at least once.
type OutboxWorker struct {
	outbox    repository.OutboxStore
	publisher Publisher
	opts      OutboxOptions
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewOutboxWorker(outbox repository.OutboxStore, publisher Publisher, opts OutboxOptions) *OutboxWorker {
	if opts.Interval <= 0 {
		opts.Interval = defaultWorkerInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.PublishedRetention <= 0 {
		opts.PublishedRetention = defaultPublishedRetention
	}
	return &OutboxWorker{
		outbox:    outbox,
		publisher: publisher,
		opts:      opts,
		done:      make(chan struct{}),
	}
}

func (w *OutboxWorker) Start() {
	w.wg.Add(2)
	go w.processLoop()
	go w.cleanupLoop()
	log.Println("outbox: started")
}

func (w *OutboxWorker) processLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.Flush(context.Background())
		}
	}
}

// Flush publishes one batch of pending messages and reports how many went out.
func (w *OutboxWorker) Flush(ctx context.Context) int {
	messages, err := w.outbox.PendingOutbox(ctx, w.opts.BatchSize)
	if err != nil {
		log.Printf("outbox: get pending: %v", err)
		return 0
	}

	published := 0
	for _, msg := range messages {
		if err := w.publisher.Publish(ctx, msg); err != nil {
			log.Printf("outbox: publish %s: %v", msg.ID, err)
			if err := w.outbox.MarkOutboxFailed(ctx, msg.ID, err.Error()); err != nil {
				log.Printf("outbox: mark failed %s: %v", msg.ID, err)
			}
			continue
		}

		if err := w.outbox.MarkOutboxPublished(ctx, msg.ID); err != nil {
			log.Printf("outbox: mark published %s: %v", msg.ID, err)
			continue
		}
		published++
	}
	return published
}

func (w *OutboxWorker) cleanupLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			deleted, err := w.outbox.DeletePublishedOutbox(context.Background(), w.opts.PublishedRetention)
			if err != nil {
				log.Printf("outbox: cleanup: %v", err)
			} else if deleted > 0 {
				log.Printf("outbox: cleaned %d old messages", deleted)
			}
		}
	}
}

// Stop flushes once more so events from the last requests are not held back
// until the next start.
func (w *OutboxWorker) Stop() {
	close(w.done)
	w.wg.Wait()
	w.Flush(context.Background())
	log.Println("outbox: stopped")
}
