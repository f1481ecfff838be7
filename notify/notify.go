// Package notify delivers short success and failure messages to the developer,
// either as desktop notifications or on the console.
//
// Messages are text/template strings rendered against a Context, so callers can write
// "[SCRIPT] Generated script: {{.File}}" or "[TEST] {{.Error}}".
package notify

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/bitrise-io/go-utils/v2/log"
)

// Level controls how much of the notifier's own console logging is shown.
// It does not affect whether notifications are sent.
type Level int

const (
	// LevelSilent never logs.
	LevelSilent Level = 0
	// LevelErrors logs error notifications only.
	LevelErrors Level = 1
	// LevelAll logs every notification.
	LevelAll Level = 2
)

const errorTitleFormat = "Error running %s"

// Context is the data a notification template is rendered with.
type Context struct {
	Message string
	File    string
	Error   error
}

// Notification ...
type Notification struct {
	Title   string
	Message string
	IsError bool
}

// Sender delivers a rendered notification.
type Sender interface {
	Send(notification Notification) error
}

// Notifier ...
type Notifier struct {
	mu     sync.Mutex
	level  Level
	title  string
	sender Sender
	logger log.Logger
}

// New ...
func New(title string, sender Sender, logger log.Logger) *Notifier {
	return &Notifier{
		level:  LevelAll,
		title:  title,
		sender: sender,
		logger: logger,
	}
}

// LogLevel ...
func (n *Notifier) LogLevel() Level {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.level
}

// SetLogLevel ...
func (n *Notifier) SetLogLevel(level Level) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.level = level
}

// OverrideLogLevel sets level and returns a function that puts the previous level back.
func (n *Notifier) OverrideLogLevel(level Level) (restore func()) {
	n.mu.Lock()
	previous := n.level
	n.level = level
	n.mu.Unlock()

	return func() {
		n.SetLogLevel(previous)
	}
}

// Notify renders tmpl and sends it as a success notification.
func (n *Notifier) Notify(tmpl string, ctx Context) error {
	message, err := render(tmpl, ctx)
	if err != nil {
		return err
	}

	if n.LogLevel() >= LevelAll {
		n.logger.Donef("[%s] %s", n.title, message)
	}

	if err := n.sender.Send(Notification{Title: n.title, Message: message}); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// OnError returns an error handler which renders tmpl with the error and sends it as
// an error notification. The handler never panics and never fails: a broken template
// falls back to the error's message and send failures are only logged.
func (n *Notifier) OnError(tmpl string) func(error) {
	return func(err error) {
		defer func() {
			if r := recover(); r != nil {
				n.logger.Warnf("Error notification dropped: %v", r)
			}
		}()

		ctx := Context{Error: err}
		if err != nil {
			ctx.Message = err.Error()
		}

		message, renderErr := render(tmpl, ctx)
		if renderErr != nil {
			n.logger.Debugf("Failed to render notification template: %s", renderErr)
			message = ctx.Message
		}

		title := fmt.Sprintf(errorTitleFormat, n.title)
		if n.LogLevel() >= LevelErrors {
			n.logger.Errorf("[%s] %s", title, message)
		}

		if sendErr := n.sender.Send(Notification{Title: title, Message: message, IsError: true}); sendErr != nil {
			n.logger.Debugf("Failed to send error notification: %s", sendErr)
		}
	}
}

func render(tmpl string, ctx Context) (string, error) {
	t, err := template.New("notification").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid notification template (%s): %w", tmpl, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to render notification: %w", err)
	}
	return buf.String(), nil
}
