// Package notify collects the transient messages ("toasts") the UI shows
// after a mutation settles or a secondary step degrades.
package notify

import (
	"errors"
	"sync"
	"time"

	"cis-portal/internal/httpclient"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is one toast.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier is what services report outcomes through.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Warning(msg string)
	Info(msg string)
}

// Center is an in-memory Notifier holding the most recent notifications
// until the UI drains them.
type Center struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	now      func() time.Time
	logger   *zap.Logger
}

// NewCenter keeps at most capacity undrained notifications, dropping the oldest.
func NewCenter(capacity int, logger *zap.Logger) *Center {
	if capacity <= 0 {
		capacity = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{capacity: capacity, now: time.Now, logger: logger}
}

func (c *Center) Success(msg string) { c.push(LevelSuccess, msg) }
func (c *Center) Error(msg string)   { c.push(LevelError, msg) }
func (c *Center) Warning(msg string) { c.push(LevelWarning, msg) }
func (c *Center) Info(msg string)    { c.push(LevelInfo, msg) }

func (c *Center) push(level Level, msg string) {
	n := Notification{ID: uuid.NewString(), Level: level, Message: msg, CreatedAt: c.now().UTC()}

	c.mu.Lock()
	c.items = append(c.items, n)
	if over := len(c.items) - c.capacity; over > 0 {
		c.items = append([]Notification(nil), c.items[over:]...)
	}
	c.mu.Unlock()

	c.logger.Debug("notification", zap.String("level", string(level)), zap.String("message", msg))
}

// Pending returns undrained notifications, oldest first.
func (c *Center) Pending() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification{}, c.items...)
}

// Drain returns and forgets undrained notifications.
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// ErrorText picks the message to show for a failed mutation: the backend's
// own message when it sent one, otherwise fallback.
func ErrorText(err error, fallback string) string {
	var herr *httpclient.HTTPError
	if errors.As(err, &herr) && herr.Status != 0 && herr.Message != "" {
		return herr.Message
	}
	return fallback
}
