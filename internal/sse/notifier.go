package sse

import (
	"time"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// HubNotifier publishes payment request events to the admin SSE hub.
type HubNotifier struct {
	hub *Hub
	now func() time.Time
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub, now: time.Now}
}

func (n *HubNotifier) NotifyRequestIssued(req *models.PaymentRequest) {
	n.publish(EventRequestIssued, req)
}

func (n *HubNotifier) NotifyRequestFinalized(req *models.PaymentRequest) {
	n.publish(EventRequestFinalized, req)
}

func (n *HubNotifier) publish(eventType EventType, req *models.PaymentRequest) {
	if n.hub.Len() == 0 {
		return
	}
	n.hub.Publish(&PaymentRequestEvent{
		Event:         eventType,
		RequestName:   req.Name,
		ClientID:      req.ClientID,
		Status:        string(req.Status),
		StatusLabel:   string(req.Status.Label()),
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		IsSandbox:     req.IsSandbox,
		Timestamp:     n.now().UTC(),
	})
}
