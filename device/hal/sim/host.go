package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"unicode/utf16"

	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// Descriptor types requested during enumeration.
const (
	descriptorTypeDevice        = 0x01
	descriptorTypeConfiguration = 0x02
	descriptorTypeString        = 0x03
)

// DefaultRetries is the number of times a NAKed or unanswered transaction is
// repeated before the transfer fails.
const DefaultRetries = 64

// LanguageEnglishUS is the language ID used when the device lists none.
const LanguageEnglishUS = 0x0409

// Host performs USB transfers against a Peripheral, one transaction at a time,
// the way a host controller schedules them on the bus.
//
// After every transaction the host calls its step function so the device
// firmware gets to service the event. Tests pass the engine's Task method
// and run everything on one goroutine; a host sharing the peripheral with a
// concurrently polled engine keeps the default, which yields the processor.
type Host struct {
	bus        *Peripheral
	step       func()
	retries    int
	address    uint8
	maxPacket0 int
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithStep sets the function called after each transaction.
func WithStep(step func()) HostOption {
	return func(h *Host) { h.step = step }
}

// WithRetries sets how often a NAKed transaction is repeated.
func WithRetries(n int) HostOption {
	return func(h *Host) { h.retries = n }
}

// NewHost creates a host attached to bus.
func NewHost(bus *Peripheral, opts ...HostOption) *Host {
	h := &Host{
		bus:        bus,
		step:       runtime.Gosched,
		retries:    DefaultRetries,
		maxPacket0: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Address returns the device address the host currently talks to.
func (h *Host) Address() uint8 { return h.address }

// Reset drives a bus reset and returns to the default address.
func (h *Host) Reset() {
	h.bus.BusReset()
	h.step()
	h.address = 0
	h.maxPacket0 = 64
}

// Frame sends a start-of-frame token.
func (h *Host) Frame() {
	h.bus.StartOfFrame()
	h.step()
}

// Suspend idles the bus until the device suspends.
func (h *Host) Suspend() {
	h.bus.Suspend()
	h.step()
}

// Resume signals bus activity to a suspended device.
func (h *Host) Resume() {
	h.bus.Wakeup()
	h.step()
}

// transact repeats op while the device answers NAK or not at all.
func (h *Host) transact(ctx context.Context, op func() pkg.Handshake) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		hs := op()
		switch hs {
		case pkg.HandshakeACK:
			h.step()
			return nil
		case pkg.HandshakeNAK, pkg.HandshakeNone:
			if attempt >= h.retries {
				return fmt.Errorf("%w: %w", pkg.ErrTimeout, hs.Err())
			}
			h.step()
		default:
			return hs.Err()
		}
	}
}

func (h *Host) setup(ctx context.Context, s *hal.SetupPacket) error {
	var raw [hal.SetupPacketSize]byte
	s.MarshalTo(raw[:])
	return h.transact(ctx, func() pkg.Handshake {
		return h.bus.Setup(h.address, 0, raw[:])
	})
}

// In reads one packet from IN endpoint ep.
func (h *Host) In(ctx context.Context, ep uint8) ([]byte, error) {
	var data []byte
	err := h.transact(ctx, func() pkg.Handshake {
		var hs pkg.Handshake
		data, hs = h.bus.In(h.address, ep)
		return hs
	})
	return data, err
}

// Out writes one packet to OUT endpoint ep.
func (h *Host) Out(ctx context.Context, ep uint8, data []byte) error {
	return h.transact(ctx, func() pkg.Handshake {
		return h.bus.Out(h.address, ep, data)
	})
}

// ControlIn performs a control read: SETUP, IN packets until a short packet
// or wLength bytes, then a zero-length OUT status stage.
func (h *Host) ControlIn(ctx context.Context, s *hal.SetupPacket) ([]byte, error) {
	pkg.LogDebug(pkg.ComponentSim, "control in", "setup", s.String())

	if err := h.setup(ctx, s); err != nil {
		return nil, fmt.Errorf("setup stage: %w", err)
	}
	data := make([]byte, 0, s.Length)
	for len(data) < int(s.Length) {
		pkt, err := h.In(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("data stage: %w", err)
		}
		data = append(data, pkt...)
		if len(pkt) < h.maxPacket0 {
			break
		}
	}
	if err := h.Out(ctx, 0, nil); err != nil {
		return nil, fmt.Errorf("status stage: %w", err)
	}
	return data, nil
}

// ControlOut performs a control write: SETUP, the data split into
// maximum-size OUT packets, then a zero-length IN status stage.
func (h *Host) ControlOut(ctx context.Context, s *hal.SetupPacket, data []byte) error {
	pkg.LogDebug(pkg.ComponentSim, "control out", "setup", s.String(), "len", len(data))

	if err := h.setup(ctx, s); err != nil {
		return fmt.Errorf("setup stage: %w", err)
	}
	for len(data) > 0 {
		n := min(len(data), h.maxPacket0)
		if err := h.Out(ctx, 0, data[:n]); err != nil {
			return fmt.Errorf("data stage: %w", err)
		}
		data = data[n:]
	}
	status, err := h.In(ctx, 0)
	if err != nil {
		return fmt.Errorf("status stage: %w", err)
	}
	if len(status) != 0 {
		return fmt.Errorf("status stage: %d bytes: %w", len(status), pkg.ErrInvalidRequest)
	}
	return nil
}

// GetDescriptor requests length bytes of a descriptor.
func (h *Host) GetDescriptor(ctx context.Context, descType, index uint8, lang, length uint16) ([]byte, error) {
	var s hal.SetupPacket
	hal.GetDescriptorSetup(&s, descType, index, lang, length)
	return h.ControlIn(ctx, &s)
}

// ReadDescriptor reads a complete descriptor: first its header to learn the
// length, then exactly that many bytes.
func (h *Host) ReadDescriptor(ctx context.Context, descType, index uint8, lang uint16) ([]byte, error) {
	head, err := h.GetDescriptor(ctx, descType, index, lang, 4)
	if err != nil {
		return nil, err
	}
	if len(head) < 2 {
		return nil, pkg.ErrDescriptorTooShort
	}
	length := uint16(head[0])
	if descType == descriptorTypeConfiguration {
		if len(head) < 4 {
			return nil, pkg.ErrDescriptorTooShort
		}
		length = binary.LittleEndian.Uint16(head[2:4])
	}
	if int(length) <= len(head) {
		return head[:length], nil
	}
	return h.GetDescriptor(ctx, descType, index, lang, length)
}

// SetAddress assigns address to the device and switches to it.
func (h *Host) SetAddress(ctx context.Context, address uint8) error {
	var s hal.SetupPacket
	hal.SetAddressSetup(&s, address)
	if err := h.ControlOut(ctx, &s, nil); err != nil {
		return err
	}
	h.address = address & uint8(hal.AddrMask)
	return nil
}

// SetConfiguration selects a configuration.
func (h *Host) SetConfiguration(ctx context.Context, value uint8) error {
	var s hal.SetupPacket
	hal.SetConfigurationSetup(&s, value)
	return h.ControlOut(ctx, &s, nil)
}

// GetConfiguration returns the active configuration value.
func (h *Host) GetConfiguration(ctx context.Context) (uint8, error) {
	var s hal.SetupPacket
	hal.GetConfigurationSetup(&s)
	data, err := h.ControlIn(ctx, &s)
	if err != nil {
		return 0, err
	}
	if len(data) != 1 {
		return 0, fmt.Errorf("configuration: %d bytes: %w", len(data), pkg.ErrInvalidRequest)
	}
	return data[0], nil
}

// GetStatus returns the status word of a device, interface or endpoint.
func (h *Host) GetStatus(ctx context.Context, recipient uint8, index uint16) (uint16, error) {
	var s hal.SetupPacket
	hal.GetStatusSetup(&s, recipient, index)
	data, err := h.ControlIn(ctx, &s)
	if err != nil {
		return 0, err
	}
	if len(data) != 2 {
		return 0, fmt.Errorf("status: %d bytes: %w", len(data), pkg.ErrInvalidRequest)
	}
	return binary.LittleEndian.Uint16(data), nil
}

// SetFeature sets a feature on a device, interface or endpoint.
func (h *Host) SetFeature(ctx context.Context, recipient uint8, feature, index uint16) error {
	var s hal.SetupPacket
	hal.SetFeatureSetup(&s, recipient, feature, index)
	return h.ControlOut(ctx, &s, nil)
}

// ClearFeature clears a feature on a device, interface or endpoint.
func (h *Host) ClearFeature(ctx context.Context, recipient uint8, feature, index uint16) error {
	var s hal.SetupPacket
	hal.ClearFeatureSetup(&s, recipient, feature, index)
	return h.ControlOut(ctx, &s, nil)
}

// Enumeration is what the host learned while enumerating a device.
type Enumeration struct {
	Address       uint8
	Device        []byte
	Configuration []byte
	Languages     []uint16
	Strings       map[uint8]string
}

// Enumerate resets the device, assigns address, reads the device,
// configuration and string descriptors and selects the first configuration.
func (h *Host) Enumerate(ctx context.Context, address uint8) (*Enumeration, error) {
	h.Reset()

	head, err := h.GetDescriptor(ctx, descriptorTypeDevice, 0, 0, 8)
	if err != nil {
		return nil, fmt.Errorf("device descriptor header: %w", err)
	}
	if len(head) < 8 {
		return nil, fmt.Errorf("device descriptor header: %w", pkg.ErrDescriptorTooShort)
	}
	if mps := int(head[7]); mps > 0 {
		h.maxPacket0 = mps
	}

	if err := h.SetAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("set address: %w", err)
	}

	e := &Enumeration{Address: h.address, Strings: make(map[uint8]string)}
	if e.Device, err = h.ReadDescriptor(ctx, descriptorTypeDevice, 0, 0); err != nil {
		return nil, fmt.Errorf("device descriptor: %w", err)
	}
	if len(e.Device) < 18 {
		return nil, fmt.Errorf("device descriptor: %w", pkg.ErrDescriptorTooShort)
	}
	if e.Configuration, err = h.ReadDescriptor(ctx, descriptorTypeConfiguration, 0, 0); err != nil {
		return nil, fmt.Errorf("configuration descriptor: %w", err)
	}
	if len(e.Configuration) < 9 {
		return nil, fmt.Errorf("configuration descriptor: %w", pkg.ErrDescriptorTooShort)
	}

	lang := uint16(LanguageEnglishUS)
	if table, err := h.ReadDescriptor(ctx, descriptorTypeString, 0, 0); err == nil {
		for i := 2; i+1 < len(table); i += 2 {
			e.Languages = append(e.Languages, binary.LittleEndian.Uint16(table[i:]))
		}
		if len(e.Languages) > 0 {
			lang = e.Languages[0]
		}
	}
	for _, idx := range []uint8{e.Device[14], e.Device[15], e.Device[16], e.Configuration[6]} {
		if _, seen := e.Strings[idx]; idx == 0 || seen {
			continue
		}
		desc, err := h.ReadDescriptor(ctx, descriptorTypeString, idx, lang)
		if err != nil {
			return nil, fmt.Errorf("string descriptor %d: %w", idx, err)
		}
		e.Strings[idx] = DecodeString(desc)
	}

	if err := h.SetConfiguration(ctx, e.Configuration[5]); err != nil {
		return nil, fmt.Errorf("set configuration: %w", err)
	}
	pkg.LogInfo(pkg.ComponentSim, "device enumerated", "address", e.Address)
	return e, nil
}

// DecodeString returns the text of a UTF-16LE string descriptor.
func DecodeString(desc []byte) string {
	if len(desc) == 0 {
		return ""
	}
	n := min(int(desc[0]), len(desc))
	if n < 2 {
		return ""
	}
	units := make([]uint16, 0, (n-2)/2)
	for i := 2; i+1 < n; i += 2 {
		units = append(units, binary.LittleEndian.Uint16(desc[i:]))
	}
	return string(utf16.Decode(units))
}
