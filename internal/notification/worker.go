package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/model"
	"headroom-havens-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool alerts subscribed operators about new leads.
type WorkerPool struct {
	size    int
	jobs    chan string
	store   store.Store
	catalog *catalog.Catalog
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, c *catalog.Catalog, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size*16),
		store:   s,
		catalog: c,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Alert worker %d started", id)
	for {
		select {
		case leadID := <-wp.jobs:
			wp.alertForLead(ctx, leadID)
		case <-ctx.Done():
			log.Printf("Alert worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert for a recorded lead. Alerts are best effort: when
// the queue is full the alert is dropped rather than holding up the visitor.
func (wp *WorkerPool) Dispatch(leadID string) {
	select {
	case wp.jobs <- leadID:
	default:
		log.Printf("Alert queue full; dropping alert for lead %s", leadID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}

// Message builds the alert text for a lead.
func (wp *WorkerPool) Message(lead model.Lead) string {
	if lead.ListingID != nil && wp.catalog != nil {
		if l, err := wp.catalog.Resolve(*lead.ListingID); err == nil {
			return fmt.Sprintf("New %s lead for %s", lead.FormName, l.Name)
		}
	}
	return fmt.Sprintf("New %s lead", lead.FormName)
}

func (wp *WorkerPool) alertForLead(ctx context.Context, leadID string) {
	lead, err := wp.store.FindLead(ctx, leadID)
	if err != nil {
		log.Printf("Error loading lead %s for alert: %v", leadID, err)
		return
	}

	subscriptions, err := wp.store.SubscriptionsFor(ctx, lead.FormName)
	if err != nil {
		log.Printf("Error fetching subscriptions for lead %s: %v", leadID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d alerts for lead %s", len(subscriptions), leadID)
	payload := []byte(wp.Message(lead))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending alert to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DB().WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
