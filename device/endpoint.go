package device

import (
	"fmt"

	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// EndpointType is a transfer type (USB 2.0 Spec Table 9-13). The values
// match bits 1:0 of an endpoint descriptor's bmAttributes.
type EndpointType uint8

// Endpoint transfer types.
const (
	EndpointTypeControl     EndpointType = 0x00 // Control transfer
	EndpointTypeIsochronous EndpointType = 0x01 // Isochronous transfer
	EndpointTypeBulk        EndpointType = 0x02 // Bulk transfer
	EndpointTypeInterrupt   EndpointType = 0x03 // Interrupt transfer
)

// Endpoint address direction bits.
const (
	EndpointDirectionOut = 0x00 // Host to device
	EndpointDirectionIn  = 0x80 // Device to host
)

// String returns the name of the transfer type.
func (t EndpointType) String() string {
	switch t {
	case EndpointTypeControl:
		return "control"
	case EndpointTypeIsochronous:
		return "isochronous"
	case EndpointTypeBulk:
		return "bulk"
	case EndpointTypeInterrupt:
		return "interrupt"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// kind returns the endpoint register encoding of the transfer type.
func (t EndpointType) kind() hal.EndpointKind {
	switch t {
	case EndpointTypeControl:
		return hal.KindControl
	case EndpointTypeIsochronous:
		return hal.KindIsochronous
	case EndpointTypeInterrupt:
		return hal.KindInterrupt
	default:
		return hal.KindBulk
	}
}

// ParseEndpointType returns the transfer type with the given name.
func ParseEndpointType(name string) (EndpointType, error) {
	for _, t := range []EndpointType{
		EndpointTypeControl, EndpointTypeIsochronous, EndpointTypeBulk, EndpointTypeInterrupt,
	} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("endpoint type %q: %w", name, pkg.ErrInvalidParameter)
}

// EndpointConfig is the buffer geometry and transfer type of one endpoint.
// A zero size means the direction has no buffer and is never armed.
type EndpointConfig struct {
	Type    EndpointType
	InSize  uint16
	OutSize uint16
}

// Configured reports whether the endpoint has a buffer in either direction.
func (c EndpointConfig) Configured() bool {
	return c.InSize != 0 || c.OutSize != 0
}

// Size returns the buffer size of direction dir.
func (c EndpointConfig) Size(dir hal.Direction) uint16 {
	if dir == hal.DirIn {
		return c.InSize
	}
	return c.OutSize
}

// Config is the static endpoint table of a device. Entry 0 is the control
// endpoint and is always EP0Size in both directions; a zero entry 0 is
// filled in by the engine.
type Config struct {
	Endpoints [NumEndpoints]EndpointConfig
}

// control is the only valid endpoint 0 configuration.
var control = EndpointConfig{Type: EndpointTypeControl, InSize: EP0Size, OutSize: EP0Size}

// normalize fills in endpoint 0.
func (c *Config) normalize() {
	if c.Endpoints[0] == (EndpointConfig{}) {
		c.Endpoints[0] = control
	}
}

// DataBufferSize returns the packet memory taken by endpoints 1-7.
func (c *Config) DataBufferSize() int {
	total := 0
	for _, ep := range c.Endpoints[1:] {
		total += int(ep.InSize) + int(ep.OutSize)
	}
	return total
}

// Validate checks that the hardware can hold the configuration.
//
// Data endpoints must be bulk or interrupt, buffers must be an even number of
// bytes no larger than MaxPacketSize, and the sum of all data buffers must
// fit in DataBufferBudget.
func (c *Config) Validate() error {
	c.normalize()
	if c.Endpoints[0] != control {
		return fmt.Errorf("endpoint 0: must be control with %d-byte buffers: %w",
			EP0Size, pkg.ErrInvalidParameter)
	}
	for n := 1; n < NumEndpoints; n++ {
		ep := c.Endpoints[n]
		if !ep.Configured() {
			continue
		}
		switch ep.Type {
		case EndpointTypeBulk, EndpointTypeInterrupt:
		case EndpointTypeIsochronous:
			return fmt.Errorf("endpoint %d: %s: %w", n, ep.Type, pkg.ErrNotSupported)
		default:
			return fmt.Errorf("endpoint %d: %s: %w", n, ep.Type, pkg.ErrInvalidParameter)
		}
		for _, size := range []uint16{ep.InSize, ep.OutSize} {
			if size > MaxPacketSize || size%2 != 0 {
				return fmt.Errorf("endpoint %d: %d bytes: %w", n, size, pkg.ErrInvalidBufferSize)
			}
		}
	}
	if used := c.DataBufferSize(); used > DataBufferBudget {
		return fmt.Errorf("%d of %d bytes: %w", used, DataBufferBudget, pkg.ErrNoMemory)
	}
	return nil
}
