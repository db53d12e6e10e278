// Package eventlog writes activity log entries off the request path.
//
// Record never blocks and never returns an error. Entries are queued on a
// bounded buffer and drained by a background writer; a full buffer drops the
// entry. Write failures travel on a separate error channel to a reporter that
// logs and counts them.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/metrics"
	"go.uber.org/zap"
)

// ErrBufferFull is reported when an entry is dropped because the queue is full
var ErrBufferFull = errors.New("activity sink buffer full")

// Writer persists a single activity entry
type Writer interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
}

// WriteError describes an entry that could not be persisted
type WriteError struct {
	Entry domain.ActivityLog
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("activity %s for user %s: %v", e.Entry.Action, e.Entry.UserID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Sink is a best-effort activity log writer
type Sink struct {
	writer       Writer
	writeTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu      sync.RWMutex
	closed  bool
	entries chan domain.ActivityLog
	errs    chan *WriteError

	startOnce sync.Once
	reported  chan struct{}
}

// NewSink creates a sink. Start must be called before entries are written.
func NewSink(writer Writer, cfg config.ActivitySinkConfig, logger *zap.Logger) *Sink {
	size := cfg.BufferSize
	if size <= 0 {
		size = 256
	}
	timeout := time.Duration(cfg.WriteTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Sink{
		writer:       writer,
		writeTimeout: timeout,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		entries:      make(chan domain.ActivityLog, size),
		errs:         make(chan *WriteError, size),
		reported:     make(chan struct{}),
	}
}

// Start launches the drain and reporter goroutines
func (s *Sink) Start() {
	s.startOnce.Do(func() {
		go s.drain()
		go s.report()
	})
}

// Record queues an entry. CreatedAt is stamped here when unset so ordering
// reflects when the action happened, not when it was written.
func (s *Sink) Record(entry domain.ActivityLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("activity sink closed, entry dropped",
			zap.String("action", string(entry.Action)),
			zap.String("user_id", entry.UserID.String()))
		metrics.SinkEvents.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case s.entries <- entry:
	default:
		s.fail(&WriteError{Entry: entry, Err: ErrBufferFull})
	}
}

// Close stops accepting entries and waits for the queue to drain or ctx to end
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	s.Start()

	select {
	case <-s.reported:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("activity sink did not drain: %w", ctx.Err())
	}
}

func (s *Sink) drain() {
	defer close(s.errs)

	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		err := s.writer.Create(ctx, &entry)
		cancel()

		if err != nil {
			s.fail(&WriteError{Entry: entry, Err: err})
			continue
		}
		metrics.SinkEvents.WithLabelValues("written").Inc()
	}
}

// fail hands an error to the reporter. When the error channel is also full
// the failure is logged inline.
func (s *Sink) fail(werr *WriteError) {
	select {
	case s.errs <- werr:
	default:
		s.observe(werr)
	}
}

func (s *Sink) report() {
	defer close(s.reported)
	for werr := range s.errs {
		s.observe(werr)
	}
}

func (s *Sink) observe(werr *WriteError) {
	outcome := "failed"
	if errors.Is(werr.Err, ErrBufferFull) {
		outcome = "dropped"
	}
	metrics.SinkEvents.WithLabelValues(outcome).Inc()
	s.logger.Warn("failed to write activity log entry",
		zap.Error(werr.Err),
		zap.String("outcome", outcome),
		zap.String("action", string(werr.Entry.Action)),
		zap.String("user_id", werr.Entry.UserID.String()),
		zap.String("entity_id", werr.Entry.EntityID.String()))
}
