package device

import (
	"fmt"

	"github.com/ardnew/usbdfs/device/hal"
)

// SetupPacket is the 8-byte request that opens a control transfer.
type SetupPacket = hal.SetupPacket

// Endpoint and packet memory limits.
const (
	// NumEndpoints is the number of endpoints, control endpoint 0 included.
	NumEndpoints = hal.NumEndpoints

	// EP0Size is the packet size of the control endpoint in both directions.
	EP0Size = 64

	// MaxPacketSize is the largest full-speed bulk or interrupt packet.
	MaxPacketSize = 64

	// DataBufferBudget is the packet memory left for endpoints 1-7 once the
	// buffer descriptor table and both endpoint 0 buffers are placed.
	// Firmware can check a static configuration at compile time:
	//
	//	const _ uint = device.DataBufferBudget - (ep1In + ep1Out + ep2In)
	DataBufferBudget = hal.PacketMemorySize - hal.BufferTableSize - 2*EP0Size
)

// Device states as defined in USB 2.0 specification section 9.1. The
// attached, powered and suspended states are not tracked.
const (
	StateDefault    State = 0 // Reset, answering at address 0
	StateAddress    State = 1 // Address assigned, not configured
	StateConfigured State = 2 // Configuration active, data endpoints enabled
)

// State represents USB device state.
type State uint8

// String returns a human-readable state description.
func (s State) String() string {
	switch s {
	case StateDefault:
		return "Default"
	case StateAddress:
		return "Address"
	case StateConfigured:
		return "Configured"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// Standard status bits returned by GET_STATUS.
const (
	StatusSelfPowered = 1 << 0 // Device recipient
	StatusHalted      = 1 << 0 // Endpoint recipient
)
