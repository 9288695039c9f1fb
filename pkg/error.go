package pkg

import "errors"

// Control request rejections. The dispatcher answers every one of these with
// a STALL handshake on both directions of endpoint 0.
var (
	// ErrInvalidRequest indicates a malformed or unsupported request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidState indicates the request is not valid in the current
	// enumeration state.
	ErrInvalidState = errors.New("invalid device state")

	// ErrInvalidEndpoint indicates an endpoint that does not exist or has no
	// buffer in the addressed direction.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrNotSupported indicates a request the engine deliberately rejects
	// (SET_DESCRIPTOR, SYNCH_FRAME, isochronous endpoints).
	ErrNotSupported = errors.New("not supported")

	// ErrNoDescriptor indicates the descriptor provider returned nothing.
	ErrNoDescriptor = errors.New("descriptor not available")

	// ErrNotHandled indicates no class or vendor handler accepted the request.
	ErrNotHandled = errors.New("request not handled")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")
)

// Configuration errors, reported before any hardware is touched.
var (
	// ErrNoMemory indicates the endpoint buffers exceed packet memory.
	ErrNoMemory = errors.New("insufficient packet memory")

	// ErrInvalidBufferSize indicates a buffer size the hardware cannot
	// describe.
	ErrInvalidBufferSize = errors.New("invalid buffer size")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoDescriptors indicates a device was composed without a
	// descriptor provider.
	ErrNoDescriptors = errors.New("no descriptor provider")
)

// Class driver errors.
var (
	// ErrNotConfigured indicates the device has not been configured by the
	// host yet.
	ErrNotConfigured = errors.New("device not configured")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrBufferFull indicates a class driver's transmit buffer could not take
	// all of the data.
	ErrBufferFull = errors.New("buffer full")
)

// Descriptor decoding errors.
var (
	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match
	// the expected type.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")
)

// Host-side transaction outcomes reported by the simulated bus.
var (
	// ErrStall indicates the device answered with STALL.
	ErrStall = errors.New("endpoint stalled")

	// ErrNAK indicates the device answered with NAK.
	ErrNAK = errors.New("NAK received")

	// ErrNoResponse indicates the device did not answer the token at all.
	ErrNoResponse = errors.New("no response")

	// ErrOverrun indicates the host sent more than the buffer can hold.
	ErrOverrun = errors.New("data overrun")

	// ErrTimeout indicates a transaction was retried until its deadline.
	ErrTimeout = errors.New("transfer timeout")
)

// Handshake is the response a device gives to a token on the bus.
type Handshake int

// Handshake values.
const (
	HandshakeACK   Handshake = iota // Transaction accepted
	HandshakeNAK                    // Endpoint busy
	HandshakeStall                  // Endpoint halted or request rejected
	HandshakeNone                   // No answer (wrong address, disabled endpoint)
	HandshakeError                  // Transaction error (overrun)
)

// String returns a string representation of the handshake.
func (h Handshake) String() string {
	switch h {
	case HandshakeACK:
		return "ack"
	case HandshakeNAK:
		return "nak"
	case HandshakeStall:
		return "stall"
	case HandshakeNone:
		return "none"
	case HandshakeError:
		return "error"
	default:
		return "unknown"
	}
}

// Err returns the error corresponding to the handshake, nil for ACK.
func (h Handshake) Err() error {
	switch h {
	case HandshakeACK:
		return nil
	case HandshakeNAK:
		return ErrNAK
	case HandshakeStall:
		return ErrStall
	case HandshakeNone:
		return ErrNoResponse
	case HandshakeError:
		return ErrOverrun
	default:
		return ErrInvalidParameter
	}
}
