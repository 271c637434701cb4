package decision

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink is the destination a Logger writes entries to.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// Discard is a Sink that drops every entry. Used where decision logging
// is not wired up (local CLI runs, tests).
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Write(context.Context, Entry) error { return nil }

const (
	defaultQueueSize      = 256
	defaultFlushThreshold = 10
	defaultRetryLimit     = 256
	flushInterval         = 5 * time.Second
)

// Logger is the asynchronous decision recorder. Record never blocks: the
// entry is handed to a background worker that writes it to the sink,
// buffering failed writes and retrying them in batches. Under a sustained
// outage the oldest buffered entries are dropped; loss is acceptable,
// blocking the caller is not.
type Logger struct {
	sink           Sink
	queue          chan Entry
	flushThreshold int
	retryLimit     int

	wg   sync.WaitGroup
	stop chan struct{}
}

// NewLogger creates and starts a Logger writing to sink.
func NewLogger(sink Sink) *Logger {
	l := &Logger{
		sink:           sink,
		queue:          make(chan Entry, defaultQueueSize),
		flushThreshold: defaultFlushThreshold,
		retryLimit:     defaultRetryLimit,
		stop:           make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Record enqueues an entry, assigning an ID and timestamp when missing.
// If the queue is full the entry is dropped.
func (l *Logger) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	select {
	case l.queue <- e:
	default:
		log.Printf("decision log queue full, dropping %s entry", e.Type)
	}
}

// Close stops the worker after draining the queue and attempting a final
// flush of any buffered entries.
func (l *Logger) Close() {
	close(l.stop)
	l.wg.Wait()
}

func (l *Logger) run() {
	defer l.wg.Done()

	var retry []Entry
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	write := func(e Entry) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.sink.Write(ctx, e); err != nil {
			log.Printf("decision write failed, buffering %s entry: %v", e.Type, err)
			retry = append(retry, e)
			if len(retry) > l.retryLimit {
				retry = retry[len(retry)-l.retryLimit:]
			}
		}
	}

	flush := func() {
		if len(retry) == 0 {
			return
		}
		pending := retry
		retry = nil
		for _, e := range pending {
			write(e)
		}
	}

	for {
		select {
		case e := <-l.queue:
			write(e)
			if len(retry) >= l.flushThreshold {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-l.stop:
			for {
				select {
				case e := <-l.queue:
					write(e)
				default:
					flush()
					return
				}
			}
		}
	}
}
