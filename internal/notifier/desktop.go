package notifier

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// DesktopChannel raises a local desktop notification.
type DesktopChannel struct {
	notify func(title, message, appIcon string) error
}

func NewDesktopChannel() *DesktopChannel {
	return &DesktopChannel{notify: beeep.Notify}
}

func (d *DesktopChannel) Name() string { return "desktop" }

func (d *DesktopChannel) Send(_ context.Context, title, body string) error {
	if err := d.notify(title, body, ""); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
