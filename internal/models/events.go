package models

import "time"

// Event types
const (
	EventTypeProductUpdated       = "PRODUCT_UPDATED"
	EventTypeCatalogReset         = "CATALOG_RESET"
	EventTypeBundleCommitted      = "BUNDLE_COMMITTED"
	EventTypeGiftCertificateAdded = "GIFT_CERTIFICATE_ADDED"
	EventTypeRestockNotification  = "RESTOCK_NOTIFICATION"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type
func (e BaseEvent) Type() string {
	return e.EventType
}

// ProductUpdatedEvent published after an admin edit is saved
type ProductUpdatedEvent struct {
	BaseEvent
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	PreviousStock int    `json:"previous_stock"`
	Stock         int    `json:"stock"`
}

// CatalogResetEvent published when the catalog is restored to its seeds
type CatalogResetEvent struct {
	BaseEvent
	ProductCount int `json:"product_count"`
}

// BundleCommittedEvent published when a pack lands in a cart
type BundleCommittedEvent struct {
	BaseEvent
	SessionID string       `json:"session_id"`
	BundleID  string       `json:"bundle_id"`
	Size      int          `json:"size"`
	Lines     []BundleLine `json:"lines"`
	NetTotal  int64        `json:"net_total"`
}

// GiftCertificateAddedEvent published when a gift certificate is added
type GiftCertificateAddedEvent struct {
	BaseEvent
	SessionID         string `json:"session_id"`
	GiftCertificateID string `json:"gift_certificate_id"`
	Amount            int64  `json:"amount"`
	SendDate          string `json:"send_date,omitempty"`
}

// RestockNotificationEvent published for a subscriber once a product is back
type RestockNotificationEvent struct {
	BaseEvent
	ProductID string `json:"product_id"`
	Email     string `json:"email"`
	Stock     int    `json:"stock"`
}
