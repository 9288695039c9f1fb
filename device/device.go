package device

import (
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// Device is the device context of one USB peripheral: endpoint table,
// enumeration state, pending address and the segmented control-in transfer.
//
// A Device is not safe for concurrent use. Task must be called from a single
// context (one interrupt priority, or a main loop). Transmit and Receive may
// be called elsewhere only while the endpoint direction is idle.
type Device struct {
	periph hal.Peripheral
	regs   *hal.Registers
	pma    hal.PacketMemory
	eps    [NumEndpoints]hal.EndpointRegister

	config Config
	layout Layout
	desc   Descriptors
	hooks  Hooks

	state          State
	address        uint8
	pendingAddress bool
	pending        uint8
	ctrl           controlIn
	sofEndpoint    uint8

	setup    SetupPacket
	setupBuf [hal.SetupPacketSize]byte
	outBuf   [EP0Size]byte
	reply    [2]byte
	serial   [serialDescriptorSize]byte
}

// New creates a device on peripheral p. The configuration is validated
// before anything else; no register is touched until Init.
func New(p hal.Peripheral, cfg Config, desc Descriptors, hooks Hooks) (*Device, error) {
	if desc == nil {
		return nil, pkg.ErrNoDescriptors
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Device{
		periph:      p,
		regs:        p.Registers(),
		pma:         p.PacketMemory(),
		config:      cfg,
		desc:        desc,
		hooks:       hooks,
		sofEndpoint: 1,
	}
	for n := range NumEndpoints {
		d.eps[n] = d.regs.Endpoint(uint8(n))
	}
	d.layout = allocate(&d.config)

	pkg.LogDebug(pkg.ComponentDevice, "device created",
		"dataBuffers", d.config.DataBufferSize(),
		"free", d.layout.Free())
	return d, nil
}

// State returns the enumeration state.
func (d *Device) State() State { return d.state }

// Address returns the device address in effect on the bus.
func (d *Device) Address() uint8 { return d.address }

// Config returns the endpoint table.
func (d *Device) Config() Config { return d.config }

// Layout returns the placement of the endpoint buffers in packet memory.
func (d *Device) Layout() Layout { return d.layout }

// ActiveConfiguration returns the selected configuration value, or 0 when
// the device is not configured.
func (d *Device) ActiveConfiguration() uint8 {
	if d.state != StateConfigured {
		return 0
	}
	return d.configurationValue()
}

// configurationValue returns bConfigurationValue of the one configuration the
// device offers, or 0 when there is none.
func (d *Device) configurationValue() uint8 {
	cfg := d.desc.ConfigurationDescriptor()
	if len(cfg) < ConfigurationDescriptorSize {
		return 0
	}
	return cfg[5]
}

// Endpoint returns the control register handle of endpoint ep, or nil when
// the peripheral has no such endpoint.
func (d *Device) Endpoint(ep uint8) hal.EndpointRegister {
	if ep >= NumEndpoints {
		return nil
	}
	return d.eps[ep]
}
