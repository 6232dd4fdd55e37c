package chat

import "time"

// Business is provisioned out of band and read-only here.
// WhatsAppNumber routes inbound webhooks to it.
type Business struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	WhatsAppNumber   string    `db:"whatsapp_number" json:"whatsappNumber"`
	APIKey           string    `db:"api_key" json:"-"`
	Plan             string    `db:"plan" json:"plan"`
	ConcurrencyLimit *int      `db:"concurrency_limit" json:"concurrencyLimit,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}
