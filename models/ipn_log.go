package models

import "time"

// IPNLog records every webhook delivery verbatim for audit and replay
// debugging, including malformed ones that were answered 200 and dropped.
type IPNLog struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	TxnID         string    `gorm:"index" json:"txn_id"`
	OrderID       string    `gorm:"index" json:"order_id"`
	PaymentStatus string    `json:"payment_status"`
	ReceiverEmail string    `json:"receiver_email"`
	GrossAmount   string    `json:"gross_amount"`
	Payload       string    `gorm:"type:text" json:"payload"`
	ProcessNote   string    `json:"process_note,omitempty"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}
