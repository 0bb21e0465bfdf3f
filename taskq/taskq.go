// Package taskq offloads chat generation to an asynchronous task
// callback, standing in for a managed task queue.
//
// Information Hiding:
// - Delivery transport and retry policy hidden behind Queue
// - Tasks retry whole runs; there is no partial-run state
package taskq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/carelinq/datachat/internal/log"
)

// Queue enqueues a payload for asynchronous delivery to an internal
// endpoint path.
type Queue interface {
	Enqueue(ctx context.Context, path string, payload any) error
}

// Dispatcher delivers tasks by POSTing JSON back to the service's own
// task endpoints on a worker goroutine, retrying failed runs with
// exponential backoff.
type Dispatcher struct {
	baseURL     string
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	logger      log.Logger
	wg          sync.WaitGroup
}

// NewDispatcher creates a dispatcher targeting baseURL
// (e.g. "http://127.0.0.1:8080"). maxAttempts values below one are
// treated as a single attempt.
func NewDispatcher(baseURL string, maxAttempts int, logger log.Logger) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 10 * time.Minute},
		maxAttempts: maxAttempts,
		baseDelay:   time.Second,
		logger:      logger,
	}
}

// Enqueue schedules delivery and returns immediately. Each task runs
// on its own goroutine; failures are retried as whole runs and logged
// when attempts are exhausted.
func (d *Dispatcher) Enqueue(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode task payload: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(path, body)
	}()
	return nil
}

// Wait blocks until all in-flight tasks have completed. Used by
// shutdown and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(path string, body []byte) {
	url := d.baseURL + path

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(d.baseDelay * time.Duration(1<<(attempt-1)))
		}

		if err := d.post(url, body); err != nil {
			d.logger.Warn("task delivery failed", "path", path, "attempt", attempt+1, "error", err)
			continue
		}
		return
	}

	d.logger.Error("task dropped after retries", "path", path, "attempts", d.maxAttempts)
}

func (d *Dispatcher) post(url string, body []byte) error {
	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("task endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Verify Dispatcher implements Queue
var _ Queue = (*Dispatcher)(nil)
