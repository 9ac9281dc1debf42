package notifications

import (
	"fmt"

	"strmhub/internal/library"
	"strmhub/internal/utils"

	"github.com/xconstruct/go-pushbullet"
)

// PushbulletClient implements the Notifier interface for Pushbullet.
type PushbulletClient struct {
	apiKey string
	pb     *pushbullet.Client
	logger *utils.Logger
}

// NewPushbulletClient creates a new client for sending Pushbullet notifications.
func NewPushbulletClient(apiKey string, logger *utils.Logger) *PushbulletClient {
	pb := pushbullet.New(apiKey)
	return &PushbulletClient{
		apiKey: apiKey,
		pb:     pb,
		logger: logger,
	}
}

// sendPush sends a note to all of the user's devices.
func (c *PushbulletClient) sendPush(title, body string) error {
	// The first argument to PushNote is the device iden. Empty means all devices.
	return c.pb.PushNote("", title, body)
}

// NotifyItemAdded sends a notification when an item lands in the library.
func (c *PushbulletClient) NotifyItemAdded(item *library.Item) {
	title := fmt.Sprintf("Added to Library: %s", item.Name)
	body := fmt.Sprintf("%s is now available in your library", item.Name)
	if err := c.sendPush(title, body); err != nil {
		c.logger.Error("Error sending Pushbullet notification:", err)
	}
}

// NotifyRefreshComplete reports the outcome of a scheduled metadata refresh.
func (c *PushbulletClient) NotifyRefreshComplete(refreshed, failed int) {
	title := "Library Refresh Complete"
	body := fmt.Sprintf("Refreshed %d items, %d failed", refreshed, failed)
	if err := c.sendPush(title, body); err != nil {
		c.logger.Error("Error sending Pushbullet notification:", err)
	}
}

// NotifyUpstreamDown warns that a metadata service stopped responding.
func (c *PushbulletClient) NotifyUpstreamDown(service string) {
	title := fmt.Sprintf("Service Unavailable: %s", service)
	body := fmt.Sprintf("%s is not responding, cached results will be served until it recovers", service)
	if err := c.sendPush(title, body); err != nil {
		c.logger.Error("Error sending Pushbullet notification:", err)
	}
}

// Test verifies the API key is valid by fetching user info.
func (c *PushbulletClient) Test() error {
	if _, err := c.pb.Me(); err != nil {
		return fmt.Errorf("pushbullet authentication failed: %w", err)
	}
	return nil
}
