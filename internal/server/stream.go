package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// streamPing keeps idle progress streams open through proxies
	streamPing = 30 * time.Second
	// subscriberBuffer is how many progress events a slow client may lag
	subscriberBuffer = 10
)

// ProgressEvent is a snapshot of a descent job sent to stream subscribers
type ProgressEvent struct {
	JobID       string    `json:"jobId"`
	State       JobState  `json:"state"`
	Iterations  int       `json:"iterations"`
	Cost        float64   `json:"cost"`
	Point       []float64 `json:"point,omitempty"`
	ItersPerSec float64   `json:"itersPerSec"`
	Timestamp   time.Time `json:"timestamp"`
}

// newProgressEvent builds an event from a job snapshot
func newProgressEvent(job *Job) ProgressEvent {
	var rate float64
	if elapsed := job.Elapsed().Seconds(); elapsed > 0 {
		rate = float64(job.Iterations) / elapsed
	}
	return ProgressEvent{
		JobID:       job.ID,
		State:       job.State,
		Iterations:  job.Iterations,
		Cost:        job.Cost,
		Point:       job.Point,
		ItersPerSec: rate,
		Timestamp:   time.Now(),
	}
}

type subscribers map[chan ProgressEvent]struct{}

// EventBroadcaster fans progress events of each job out to its stream
// subscribers and remembers the latest one for late joiners.
type EventBroadcaster struct {
	mu      sync.RWMutex
	streams map[string]subscribers
	latest  map[string]ProgressEvent
}

// NewEventBroadcaster creates an empty broadcaster
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		streams: make(map[string]subscribers),
		latest:  make(map[string]ProgressEvent),
	}
}

// offer delivers event unless ch is full
func offer(ch chan ProgressEvent, event ProgressEvent) bool {
	select {
	case ch <- event:
		return true
	default:
		return false
	}
}

// Subscribe registers a new subscriber for jobID. The latest known event,
// if any, is queued on the returned channel right away.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, subscriberBuffer)
	if eb.streams[jobID] == nil {
		eb.streams[jobID] = make(subscribers)
	}
	eb.streams[jobID][ch] = struct{}{}

	if event, ok := eb.latest[jobID]; ok {
		offer(ch, event)
	}

	slog.Debug("Progress stream subscribed", "job_id", jobID, "subscribers", len(eb.streams[jobID]))
	return ch
}

// Unsubscribe drops ch and closes it. Channels already closed by
// CleanupJob are left alone.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs, ok := eb.streams[jobID]
	if !ok {
		return
	}
	if _, registered := subs[ch]; registered {
		delete(subs, ch)
		close(ch)
	}
	if len(subs) == 0 {
		delete(eb.streams, jobID)
	}

	slog.Debug("Progress stream unsubscribed", "job_id", jobID)
}

// Broadcast records event as the job's latest and offers it to every
// subscriber. Once a job has reported a terminal state, later non-terminal
// ticks from the progress monitor are discarded.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if prev, ok := eb.latest[event.JobID]; ok && prev.State.Terminal() && !event.State.Terminal() {
		return
	}
	eb.latest[event.JobID] = event

	dropped := 0
	for ch := range eb.streams[event.JobID] {
		if !offer(ch, event) {
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("Progress subscribers lagging, event dropped",
			"job_id", event.JobID,
			"iteration", event.Iterations,
			"dropped", dropped,
		)
	}
}

// LastEvent returns the latest event recorded for a job
func (eb *EventBroadcaster) LastEvent(jobID string) (ProgressEvent, bool) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	event, ok := eb.latest[jobID]
	return event, ok
}

// CleanupJob closes every subscriber of a job and forgets its latest event
func (eb *EventBroadcaster) CleanupJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.streams[jobID] {
		close(ch)
	}
	delete(eb.streams, jobID)
	delete(eb.latest, jobID)

	slog.Debug("Progress streams released", "job_id", jobID)
}

// handleJobStream streams a job's progress as Server-Sent Events. The
// current snapshot goes first; the stream ends after a terminal state.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	if err := writeSSEEvent(w, newProgressEvent(job)); err != nil {
		slog.Error("Failed to send progress snapshot", "job_id", jobID, "error", err)
		return
	}
	flusher.Flush()
	if job.State.Terminal() {
		return
	}

	streamProgress(r.Context(), w, flusher, jobID, events)
}

// streamProgress relays events until the job ends, the channel closes or
// the client goes away
func streamProgress(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, jobID string, events <-chan ProgressEvent) {
	ping := time.NewTicker(streamPing)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Progress stream client gone", "job_id", jobID)
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to send progress event", "job_id", jobID, "error", err)
				return
			}
			flusher.Flush()
			if event.State.Terminal() {
				return
			}

		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent frames one progress event as a "progress" SSE message
func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode progress event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
	return err
}
