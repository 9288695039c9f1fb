package device

import (
	"encoding/binary"

	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// handleSetup interprets a SETUP packet. A nil error means the request was
// accepted and any device-to-host data has been queued; any error makes the
// caller stall endpoint 0.
func (d *Device) handleSetup(s *SetupPacket) error {
	switch s.Type() {
	case hal.RequestTypeStandard:
	case hal.RequestTypeClass:
		return d.delegate(d.hooks.ClassRequest, s)
	case hal.RequestTypeVendor:
		return d.delegate(d.hooks.VendorRequest, s)
	default:
		return pkg.ErrInvalidRequest
	}

	switch s.Request {
	case hal.RequestGetStatus:
		return d.getStatus(s)
	case hal.RequestClearFeature:
		return d.setHalt(s, false)
	case hal.RequestSetFeature:
		return d.setHalt(s, true)
	case hal.RequestSetAddress:
		return d.setAddress(s)
	case hal.RequestGetDescriptor:
		return d.getDescriptor(s)
	case hal.RequestSetDescriptor:
		return pkg.ErrNotSupported
	case hal.RequestGetConfiguration:
		return d.getConfiguration(s)
	case hal.RequestSetConfiguration:
		return d.setConfiguration(s)
	case hal.RequestGetInterface:
		return d.getInterface(s)
	case hal.RequestSetInterface:
		return d.setInterface(s)
	case hal.RequestSynchFrame:
		return pkg.ErrNotSupported // isochronous only
	default:
		return pkg.ErrInvalidRequest
	}
}

// delegate hands a request to an optional handler.
func (d *Device) delegate(handler func(*Device, *SetupPacket) bool, s *SetupPacket) error {
	if handler == nil || !handler(d, s) {
		return pkg.ErrNotHandled
	}
	return nil
}

// endpoint decodes the endpoint addressed by wIndex.
func endpoint(s *SetupPacket) (uint8, hal.Direction, error) {
	if s.Index&0x0F >= NumEndpoints {
		return 0, 0, pkg.ErrInvalidEndpoint
	}
	return s.EndpointNumber(), s.EndpointDirection(), nil
}

// getStatus returns device, interface or endpoint status (2 bytes).
func (d *Device) getStatus(s *SetupPacket) error {
	if s.IsHostToDevice() {
		return pkg.ErrInvalidRequest
	}
	if d.state != StateConfigured {
		return pkg.ErrInvalidState
	}

	var status uint16
	switch s.Recipient() {
	case hal.RequestRecipientDevice:
		cfg := d.desc.ConfigurationDescriptor()
		if len(cfg) >= ConfigurationDescriptorSize && cfg[7]&ConfigAttrSelfPowered != 0 {
			status |= StatusSelfPowered
		}
	case hal.RequestRecipientInterface:
		// Interfaces define no status bits.
		if d.desc.InterfaceDescriptor(s.Index) == nil {
			return pkg.ErrNoDescriptor
		}
	case hal.RequestRecipientEndpoint:
		ep, dir, err := endpoint(s)
		if err != nil {
			return err
		}
		if !d.layout.Slot(ep, dir).Configured() {
			return pkg.ErrInvalidEndpoint
		}
		if d.eps[ep].IsStalled(dir) {
			status |= StatusHalted
		}
	default:
		return pkg.ErrInvalidRequest
	}

	binary.LittleEndian.PutUint16(d.reply[:], status)
	d.ControlIn(d.reply[:], s.Length)
	return nil
}

// setHalt implements SET_FEATURE and CLEAR_FEATURE. ENDPOINT_HALT on a bulk or
// interrupt endpoint is the only feature supported.
func (d *Device) setHalt(s *SetupPacket, halt bool) error {
	if s.IsDeviceToHost() ||
		s.Recipient() != hal.RequestRecipientEndpoint ||
		s.Value != hal.FeatureEndpointHalt {
		return pkg.ErrInvalidRequest
	}
	if d.state != StateConfigured {
		return pkg.ErrInvalidState
	}
	ep, dir, err := endpoint(s)
	if err != nil {
		return err
	}
	switch d.config.Endpoints[ep].Type {
	case EndpointTypeBulk, EndpointTypeInterrupt:
	default:
		return pkg.ErrInvalidEndpoint
	}
	if !d.layout.Slot(ep, dir).Configured() {
		return pkg.ErrInvalidEndpoint
	}

	if halt {
		d.eps[ep].SetStall(dir)
	} else {
		// Leaving halt restarts the data toggle at DATA0.
		d.eps[ep].Enable(dir)
	}
	pkg.LogDebug(pkg.ComponentEndpoint, "halt", "endpoint", ep, "dir", dir, "halt", halt)
	return nil
}

// setAddress records the new address. It is applied once the status stage
// of this request has been sent at the old address.
func (d *Device) setAddress(s *SetupPacket) error {
	if s.IsDeviceToHost() || s.Recipient() != hal.RequestRecipientDevice {
		return pkg.ErrInvalidRequest
	}

	switch d.state {
	case StateDefault:
		if s.Value == 0 {
			break
		}
		fallthrough
	case StateAddress:
		d.pending = uint8(s.Value & hal.AddrMask)
		d.pendingAddress = true
		if d.hooks.AddressAssigned != nil {
			d.hooks.AddressAssigned(d.pending)
		}
	case StateConfigured:
		// Accepted but ignored.
	}
	return nil
}

// getDescriptor serves device, configuration and string descriptors, and
// passes interface-recipient requests to the firmware.
func (d *Device) getDescriptor(s *SetupPacket) error {
	if s.IsHostToDevice() {
		return pkg.ErrInvalidRequest
	}

	switch s.Recipient() {
	case hal.RequestRecipientDevice:
	case hal.RequestRecipientInterface:
		return d.delegate(d.hooks.InterfaceDescriptorRequest, s)
	default:
		return pkg.ErrInvalidRequest
	}

	var data []byte
	switch s.DescriptorType() {
	case DescriptorTypeDevice:
		data = d.desc.DeviceDescriptor()
	case DescriptorTypeConfiguration:
		data = d.desc.ConfigurationDescriptor()
	case DescriptorTypeString:
		data = d.desc.StringDescriptor(s.Index, s.DescriptorIndex())
	default:
		return pkg.ErrInvalidRequest
	}
	if data == nil {
		return pkg.ErrNoDescriptor
	}
	n, err := DescriptorLength(data)
	if err != nil {
		return err
	}
	d.ControlIn(data[:n], s.Length)
	return nil
}

// getConfiguration returns the active configuration value (1 byte).
func (d *Device) getConfiguration(s *SetupPacket) error {
	if s.IsHostToDevice() || s.Recipient() != hal.RequestRecipientDevice {
		return pkg.ErrInvalidRequest
	}
	d.reply[0] = d.ActiveConfiguration()
	d.ControlIn(d.reply[:1], s.Length)
	return nil
}

// setConfiguration selects the configuration, or returns to the Address
// state for value 0.
func (d *Device) setConfiguration(s *SetupPacket) error {
	if s.IsDeviceToHost() || s.Recipient() != hal.RequestRecipientDevice {
		return pkg.ErrInvalidRequest
	}
	if d.state == StateDefault {
		return pkg.ErrInvalidState
	}

	if s.Value == 0 {
		d.state = StateAddress
		for n := 1; n < NumEndpoints; n++ {
			d.eps[n].Reset()
		}
		pkg.LogInfo(pkg.ComponentDevice, "deconfigured")
		return nil
	}

	value := uint8(s.Value)
	if value == 0 || value != d.configurationValue() {
		return pkg.ErrInvalidRequest
	}
	for n := 1; n < NumEndpoints; n++ {
		ep := d.config.Endpoints[n]
		if !ep.Configured() {
			continue
		}
		r := d.eps[n]
		r.Reset()
		r.Configure(ep.Type.kind(), uint8(n))
		if ep.InSize != 0 {
			r.Enable(hal.DirIn)
		}
		if ep.OutSize != 0 {
			r.Enable(hal.DirOut)
		}
	}
	d.state = StateConfigured
	pkg.LogInfo(pkg.ComponentDevice, "configured", "value", value)
	return nil
}

// interfaceDescriptor returns the descriptor of the interface addressed by a
// GET_INTERFACE or SET_INTERFACE request.
func (d *Device) interfaceDescriptor(s *SetupPacket) ([]byte, error) {
	if s.Recipient() != hal.RequestRecipientInterface {
		return nil, pkg.ErrInvalidRequest
	}
	if d.state != StateConfigured {
		return nil, pkg.ErrInvalidState
	}
	itf := d.desc.InterfaceDescriptor(s.Index)
	if itf == nil {
		return nil, pkg.ErrNoDescriptor
	}
	if len(itf) < InterfaceDescriptorSize {
		return nil, pkg.ErrDescriptorTooShort
	}
	return itf, nil
}

// getInterface returns the alternate setting of an interface (1 byte).
func (d *Device) getInterface(s *SetupPacket) error {
	if s.IsHostToDevice() {
		return pkg.ErrInvalidRequest
	}
	itf, err := d.interfaceDescriptor(s)
	if err != nil {
		return err
	}
	d.reply[0] = itf[3]
	d.ControlIn(d.reply[:1], s.Length)
	return nil
}

// setInterface accepts only the alternate setting the interface already has.
func (d *Device) setInterface(s *SetupPacket) error {
	if s.IsDeviceToHost() {
		return pkg.ErrInvalidRequest
	}
	itf, err := d.interfaceDescriptor(s)
	if err != nil {
		return err
	}
	if itf[3] != uint8(s.Value) {
		return pkg.ErrNotSupported
	}
	return nil
}
