package notifications

import "strmhub/internal/library"

type Notifier interface {
	NotifyItemAdded(item *library.Item)
	NotifyRefreshComplete(refreshed, failed int)
	NotifyUpstreamDown(service string)
	Test() error
}
