// Package notify delivers transient success and failure messages to the user.
// Delivery is fire-and-forget: nothing is persisted and nothing is acknowledged.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Notifier is the sink consumed by the console components.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Level distinguishes success toasts from error toasts.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one queued message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// DefaultQueueSize bounds an inbox nobody drains.
const DefaultQueueSize = 50

// Queue buffers notifications until the UI drains them. When full, the
// oldest message is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	limit int
	now   func() time.Time
}

// NewQueue creates an inbox holding at most limit messages.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultQueueSize
	}
	return &Queue{limit: limit, now: time.Now}
}

func (q *Queue) Success(message string) { q.push(LevelSuccess, message) }

func (q *Queue) Error(message string) { q.push(LevelError, message) }

func (q *Queue) push(level Level, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.limit {
		q.items = q.items[1:]
	}
	q.items = append(q.items, Notification{Level: level, Message: message, At: q.now()})
}

// Drain returns and clears everything queued so far.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Len reports how many messages are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Log forwards notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Success(message string) {
	l.logger().Info("notification", slog.String("level", string(LevelSuccess)), slog.String("message", message))
}

func (l Log) Error(message string) {
	l.logger().Warn("notification", slog.String("level", string(LevelError)), slog.String("message", message))
}

func (l Log) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Writer prints notifications as lines, for terminal use.
type Writer struct {
	mu  sync.Mutex
	Out io.Writer
}

func (w *Writer) Success(message string) { w.line("ok", message) }

func (w *Writer) Error(message string) { w.line("error", message) }

func (w *Writer) line(prefix, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.Out, "[%s] %s\n", prefix, message)
}

// Tee fans a notification out to several sinks.
func Tee(sinks ...Notifier) Notifier {
	return tee(sinks)
}

type tee []Notifier

func (t tee) Success(message string) {
	for _, s := range t {
		s.Success(message)
	}
}

func (t tee) Error(message string) {
	for _, s := range t {
		s.Error(message)
	}
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}
