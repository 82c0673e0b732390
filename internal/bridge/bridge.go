package bridge

import "context"

// Event names of the hardware bridge contract.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventHopperLevel  = "hopper_level"
	EventJam          = "jam"
)

// HopperLevel is one channel's level report.
type HopperLevel struct {
	Denomination float64 `json:"denomination"`
	CurrentLevel int     `json:"currentLevel"`
	LowThreshold int     `json:"lowThreshold"`
}

// HopperLevelPayload is the hopper_level event payload.
type HopperLevelPayload struct {
	Hoppers []HopperLevel `json:"hoppers"`
}

// JamPayload is the jam event payload.
type JamPayload struct {
	Denomination float64 `json:"denomination,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// Handler receives a bridge event payload.
type Handler func(payload any)

// Subscription identifies a registered handler for Off.
type Subscription int

// Bridge is the consumed hardware event bridge capability set. Only the
// event contract is part of this system; the transport behind it is not.
type Bridge interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	On(event string, handler Handler) Subscription
	Off(event string, sub Subscription)
}
