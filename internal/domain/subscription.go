package domain

import "time"

// PushSubscription is a recipient's registration as produced by the browser.
// All three fields are required; P256dh and Auth are base64url encoded.
// Relays are only reached over https.
type PushSubscription struct {
	Endpoint string `json:"endpoint" dynamodbav:"endpoint" validate:"required,url,startswith=https://"`
	P256dh   string `json:"p256dh" dynamodbav:"p256dh" validate:"required"`
	Auth     string `json:"auth" dynamodbav:"auth" validate:"required"`
}

// SubscriptionKeys mirrors the "keys" object of PushSubscription.toJSON().
type SubscriptionKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// BrowserSubscription is the wire shape sent by clients.
type BrowserSubscription struct {
	Endpoint       string           `json:"endpoint" validate:"required,url,startswith=https://"`
	ExpirationTime *int64           `json:"expirationTime,omitempty"`
	Keys           SubscriptionKeys `json:"keys"`
}

// ToDomain flattens the browser shape into a PushSubscription.
func (b BrowserSubscription) ToDomain() PushSubscription {
	return PushSubscription{
		Endpoint: b.Endpoint,
		P256dh:   b.Keys.P256dh,
		Auth:     b.Keys.Auth,
	}
}

// SubscriptionRecord is the persisted wrapper stored per recipient.
type SubscriptionRecord struct {
	Subscription PushSubscription `json:"subscription"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// SubscribeRequest is the registration body. The recipient is the subject of
// the caller's recipient token; RecipientID, when sent, must name the same one.
type SubscribeRequest struct {
	RecipientID  string              `json:"recipient_id" validate:"omitempty,max=256"`
	Subscription BrowserSubscription `json:"subscription"`
}
