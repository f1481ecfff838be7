package notify

import (
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/gen2brain/beeep"
)

// DesktopSender shows notifications through the operating system's notification center.
type DesktopSender struct {
	AppIcon string
}

// Send ...
func (s DesktopSender) Send(notification Notification) error {
	if notification.IsError {
		return beeep.Alert(notification.Title, notification.Message, s.AppIcon)
	}
	return beeep.Notify(notification.Title, notification.Message, s.AppIcon)
}

// ConsoleSender prints notifications with the logger, for headless environments.
type ConsoleSender struct {
	logger log.Logger
}

// NewConsoleSender ...
func NewConsoleSender(logger log.Logger) ConsoleSender {
	return ConsoleSender{logger: logger}
}

// Send ...
func (s ConsoleSender) Send(notification Notification) error {
	if notification.IsError {
		s.logger.Errorf("%s: %s", notification.Title, notification.Message)
	} else {
		s.logger.Donef("%s: %s", notification.Title, notification.Message)
	}
	return nil
}
