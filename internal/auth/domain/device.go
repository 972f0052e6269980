package domain

import "time"

// Device is the metadata cached for a registered device.
type Device struct {
	DeviceID     string         `json:"dispositivo_id"`
	AppTokenID   string         `json:"app_token_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	RegisteredAt time.Time      `json:"registered_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
}
