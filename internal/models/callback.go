package models

import (
	"encoding/json"
	"time"
)

// CallbackLog stores one on-payment-authorized delivery attempt to a client.
type CallbackLog struct {
	ID           int             `db:"id" json:"id"`
	RequestID    int             `db:"request_id" json:"requestId"`
	ClientID     int             `db:"client_id" json:"clientId"`
	Event        string          `db:"event" json:"event"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	HTTPStatus   *int            `db:"http_status" json:"httpStatus,omitempty"`
	ResponseBody *string         `db:"response_body" json:"responseBody,omitempty"`
	IsDelivered  bool            `db:"is_delivered" json:"isDelivered"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}
