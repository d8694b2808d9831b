package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// CallbackDelivery logs one dispatch attempt of a settlement callback.
type CallbackDelivery struct {
	gorm.Model

	WagerCode    string         `gorm:"size:64;index" json:"wager_code"`
	AgentCode    string         `gorm:"size:32;index" json:"agent_code"`
	URL          string         `gorm:"size:255" json:"url"`
	Attempt      int            `json:"attempt"`
	Status       string         `gorm:"size:16;index" json:"status"`
	HTTPStatus   int            `json:"http_status"`
	ResponseCode string         `gorm:"size:32" json:"response_code"`
	Error        string         `gorm:"size:512" json:"error"`
	Payload      datatypes.JSON `json:"payload"`
	DurationMs   int64          `json:"duration_ms"`
}
