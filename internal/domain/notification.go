package domain

// NotificationFields are the caller-supplied notification values. Empty
// fields fall back to the configured presentation defaults.
type NotificationFields struct {
	Title      string `json:"title,omitempty"`
	Body       string `json:"body,omitempty"`
	Icon       string `json:"icon,omitempty"`
	Badge      string `json:"badge,omitempty"`
	Tag        string `json:"tag,omitempty"`
	URL        string `json:"url,omitempty"`
	BadgeCount *int   `json:"badgeCount,omitempty"`
}

// NotificationPayload is the JSON document encrypted for the recipient.
// It is never persisted.
type NotificationPayload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Icon       string `json:"icon"`
	Badge      string `json:"badge"`
	Tag        string `json:"tag"`
	URL        string `json:"url"`
	Timestamp  int64  `json:"timestamp"` // Unix milliseconds
	BadgeCount *int   `json:"badgeCount,omitempty"`
}

// BroadcastReport aggregates per-recipient outcomes of a broadcast.
type BroadcastReport struct {
	ID      string   `json:"id"`
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Expired int      `json:"expired"`
	Total   int      `json:"total"`
	Errors  []string `json:"errors"`
}

// Health is the answer of the health check operation.
type Health struct {
	KeysConfigured  bool `json:"keysConfigured"`
	StoreConfigured bool `json:"storeConfigured"`
	RecipientCount  int  `json:"recipientCount"`
}
