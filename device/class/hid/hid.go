package hid

import (
	"github.com/ardnew/usbdfs/device"
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// MaxReportSize is the largest report a full-speed interrupt endpoint
// carries in one packet.
const MaxReportSize = device.MaxPacketSize

// Config places a HID function in a device.
type Config struct {
	Interface uint8 // Interface number
	InEP      uint8 // Interrupt IN endpoint number
	OutEP     uint8 // Interrupt OUT endpoint number, 0 for none
	Subclass  uint8 // SubclassNone or SubclassBoot
	Protocol  uint8 // Boot protocol: ProtocolKeyboard, ProtocolMouse
	Interval  uint8 // Polling interval in frames
	InSize    uint16
	OutSize   uint16
}

// HID is a HID class function. It answers the class requests and the HID
// and report descriptor requests addressed to its interface, and moves
// reports over its interrupt endpoints.
//
// Like the engine it plugs into, a HID is not safe for concurrent use.
type HID struct {
	cfg              Config
	dev              *device.Device
	reportDescriptor []byte
	hidDescriptor    [HIDDescriptorSize]byte

	protocol uint8
	idleRate uint8 // 4 ms units, 0 for reports only on change

	// SET_REPORT waiting for its data stage.
	setReport   bool
	setReportID uint8
	setType     uint8

	pending    [MaxReportSize]byte
	pendingLen int
	hasPending bool

	reply [MaxReportSize]byte
	out   [MaxReportSize]byte

	onOutputReport  func(data []byte)
	onFeatureReport func(reportID uint8, data []byte)
	onGetReport     func(reportType, reportID uint8, buf []byte) int
	onSetProtocol   func(protocol uint8)
	onSetIdle       func(rate, reportID uint8)
}

// New creates a HID function with the given report descriptor, which is kept
// by reference.
func New(cfg Config, reportDescriptor []byte) *HID {
	if cfg.InSize == 0 {
		cfg.InSize = 8
	}
	if cfg.OutEP != 0 && cfg.OutSize == 0 {
		cfg.OutSize = 8
	}
	if cfg.Interval == 0 {
		cfg.Interval = 10
	}
	h := &HID{
		cfg:              cfg,
		reportDescriptor: reportDescriptor,
		protocol:         ProtocolReport,
	}
	d := HIDDescriptor{HIDVersion: 0x0111, CountryCode: CountryNone, ReportDescLen: uint16(len(reportDescriptor))}
	d.MarshalTo(h.hidDescriptor[:])
	return h
}

// SetOnOutputReport sets the function called with each output report,
// whether it came over the OUT endpoint or a SET_REPORT request.
func (h *HID) SetOnOutputReport(cb func(data []byte)) { h.onOutputReport = cb }

// SetOnFeatureReport sets the function called with each feature report set by
// the host.
func (h *HID) SetOnFeatureReport(cb func(reportID uint8, data []byte)) { h.onFeatureReport = cb }

// SetOnGetReport sets the function that fills buf for a GET_REPORT request
// and returns the report length. Without it the host reads zeros.
func (h *HID) SetOnGetReport(cb func(reportType, reportID uint8, buf []byte) int) {
	h.onGetReport = cb
}

// SetOnSetProtocol sets the function called when the host selects the boot or
// report protocol.
func (h *HID) SetOnSetProtocol(cb func(protocol uint8)) { h.onSetProtocol = cb }

// SetOnSetIdle sets the function called when the host changes the idle rate.
func (h *HID) SetOnSetIdle(cb func(rate, reportID uint8)) { h.onSetIdle = cb }

// Protocol returns the protocol selected by the host.
func (h *HID) Protocol() uint8 { return h.protocol }

// IdleRate returns the idle rate selected by the host, in 4 ms units.
func (h *HID) IdleRate() uint8 { return h.idleRate }

// ReportDescriptor returns the report descriptor.
func (h *HID) ReportDescriptor() []byte { return h.reportDescriptor }

// HIDDescriptor returns the HID class descriptor.
func (h *HID) HIDDescriptor() []byte { return h.hidDescriptor[:] }

// Endpoints adds the function's endpoints to cfg.
func (h *HID) Endpoints(cfg *device.Config) {
	cfg.Endpoints[h.cfg.InEP] = device.EndpointConfig{
		Type:   device.EndpointTypeInterrupt,
		InSize: h.cfg.InSize,
	}
	if h.cfg.OutEP == 0 {
		return
	}
	ep := &cfg.Endpoints[h.cfg.OutEP]
	ep.Type = device.EndpointTypeInterrupt
	ep.OutSize = h.cfg.OutSize
}

// Descriptors returns the interface, HID and endpoint descriptors of the
// function, in the order they appear in a configuration descriptor.
func (h *HID) Descriptors() [][]byte {
	numEP := uint8(1)
	if h.cfg.OutEP != 0 {
		numEP++
	}
	itf := device.InterfaceDescriptor{
		InterfaceNumber:   h.cfg.Interface,
		NumEndpoints:      numEP,
		InterfaceClass:    device.ClassHID,
		InterfaceSubClass: h.cfg.Subclass,
		InterfaceProtocol: h.cfg.Protocol,
	}
	parts := [][]byte{itf.Bytes(), h.HIDDescriptor()}

	in := device.EndpointDescriptor{
		EndpointAddress: h.cfg.InEP | hal.EndpointDirectionIn,
		Attributes:      device.EndpointAttrInterrupt,
		MaxPacketSize:   h.cfg.InSize,
		Interval:        h.cfg.Interval,
	}
	parts = append(parts, in.Bytes())
	if h.cfg.OutEP != 0 {
		out := device.EndpointDescriptor{
			EndpointAddress: h.cfg.OutEP,
			Attributes:      device.EndpointAttrInterrupt,
			MaxPacketSize:   h.cfg.OutSize,
			Interval:        h.cfg.Interval,
		}
		parts = append(parts, out.Bytes())
	}
	return parts
}

// Install wires the function into hooks. Callbacks already present are kept
// and called for everything the function does not own.
func (h *HID) Install(hooks *device.Hooks) {
	class, ifDesc, ctrlOut := hooks.ClassRequest, hooks.InterfaceDescriptorRequest, hooks.ControlOut
	inReady, outReady, reset := hooks.InReady, hooks.OutReady, hooks.Reset

	hooks.ClassRequest = func(d *device.Device, s *device.SetupPacket) bool {
		if h.owns(s) {
			return h.handleRequest(d, s)
		}
		return class != nil && class(d, s)
	}
	hooks.InterfaceDescriptorRequest = func(d *device.Device, s *device.SetupPacket) bool {
		if h.owns(s) {
			return h.handleDescriptor(d, s)
		}
		return ifDesc != nil && ifDesc(d, s)
	}
	hooks.ControlOut = func(d *device.Device, data []byte) {
		if h.setReport {
			h.completeSetReport(data)
			return
		}
		if ctrlOut != nil {
			ctrlOut(d, data)
		}
	}
	hooks.InReady = func(ep uint8) {
		if ep == h.cfg.InEP {
			h.flush()
			return
		}
		if inReady != nil {
			inReady(ep)
		}
	}
	hooks.OutReady = func(ep uint8) {
		if h.cfg.OutEP != 0 && ep == h.cfg.OutEP {
			h.receive()
			return
		}
		if outReady != nil {
			outReady(ep)
		}
	}
	hooks.Reset = func(before bool) {
		if !before {
			h.reset()
		}
		if reset != nil {
			reset(before)
		}
	}
}

// Attach binds the function to the device it was installed into.
func (h *HID) Attach(d *device.Device) { h.dev = d }

func (h *HID) owns(s *device.SetupPacket) bool {
	return s.Recipient() == hal.RequestRecipientInterface && s.Index == uint16(h.cfg.Interface)
}

func (h *HID) reset() {
	h.protocol = ProtocolReport
	h.idleRate = 0
	h.setReport = false
	h.hasPending = false
}

// handleDescriptor serves the HID and report descriptors.
func (h *HID) handleDescriptor(d *device.Device, s *device.SetupPacket) bool {
	switch s.DescriptorType() {
	case DescriptorTypeHID:
		d.ControlIn(h.hidDescriptor[:], s.Length)
	case DescriptorTypeReport:
		d.ControlIn(h.reportDescriptor, s.Length)
	default:
		return false
	}
	return true
}

// handleRequest processes the class requests.
func (h *HID) handleRequest(d *device.Device, s *device.SetupPacket) bool {
	reportType, reportID := uint8(s.Value>>8), uint8(s.Value)

	switch s.Request {
	case RequestGetReport:
		if s.IsHostToDevice() {
			return false
		}
		n := min(int(s.Length), MaxReportSize)
		clear(h.reply[:n])
		if h.onGetReport != nil {
			n = max(0, min(n, h.onGetReport(reportType, reportID, h.reply[:n])))
		}
		d.ControlIn(h.reply[:n], s.Length)

	case RequestSetReport:
		if s.IsDeviceToHost() || s.Length > MaxReportSize {
			return false
		}
		h.setReport = s.Length > 0
		h.setType, h.setReportID = reportType, reportID

	case RequestGetIdle:
		if s.IsHostToDevice() {
			return false
		}
		h.reply[0] = h.idleRate
		d.ControlIn(h.reply[:1], s.Length)

	case RequestSetIdle:
		if s.IsDeviceToHost() {
			return false
		}
		h.idleRate = reportType
		if h.onSetIdle != nil {
			h.onSetIdle(h.idleRate, reportID)
		}

	case RequestGetProtocol:
		if s.IsHostToDevice() {
			return false
		}
		h.reply[0] = h.protocol
		d.ControlIn(h.reply[:1], s.Length)

	case RequestSetProtocol:
		if s.IsDeviceToHost() || s.Value > ProtocolReport {
			return false
		}
		h.protocol = uint8(s.Value)
		if h.onSetProtocol != nil {
			h.onSetProtocol(h.protocol)
		}

	default:
		return false
	}

	pkg.LogDebug(pkg.ComponentClass, "hid request", "setup", s)
	return true
}

// completeSetReport delivers the data stage of a SET_REPORT.
func (h *HID) completeSetReport(data []byte) {
	h.setReport = false
	switch h.setType {
	case ReportTypeOutput:
		if h.onOutputReport != nil {
			h.onOutputReport(data)
		}
	case ReportTypeFeature:
		if h.onFeatureReport != nil {
			h.onFeatureReport(h.setReportID, data)
		}
	}
}

// receive collects an output report from the OUT endpoint.
func (h *HID) receive() {
	if h.dev == nil {
		return
	}
	n := h.dev.Receive(h.cfg.OutEP, h.out[:])
	if h.onOutputReport != nil {
		h.onOutputReport(h.out[:min(n, len(h.out))])
	}
}

// SendReport queues an input report. The report is sent at once when the
// endpoint is idle and otherwise replaces any report still waiting, to go
// out when the host has read the current one.
func (h *HID) SendReport(report []byte) error {
	if h.dev == nil || h.dev.State() != device.StateConfigured {
		return pkg.ErrNotConfigured
	}
	if len(report) > int(h.cfg.InSize) {
		return pkg.ErrBufferTooSmall
	}
	h.pendingLen = copy(h.pending[:], report)
	h.hasPending = true
	if h.dev.Endpoint(h.cfg.InEP).Status(hal.DirIn) == hal.StatusNAK {
		h.flush()
	}
	return nil
}

// SendKeyboardReport queues a keyboard report.
func (h *HID) SendKeyboardReport(r *KeyboardReport) error {
	var buf [KeyboardReportSize]byte
	r.MarshalTo(buf[:])
	return h.SendReport(buf[:])
}

// SendMouseReport queues a mouse report.
func (h *HID) SendMouseReport(r *MouseReport) error {
	var buf [MouseReportSize]byte
	r.MarshalTo(buf[:])
	return h.SendReport(buf[:])
}

// Pending reports whether an input report is waiting for the endpoint.
func (h *HID) Pending() bool { return h.hasPending }

// flush moves the waiting report into the endpoint buffer.
func (h *HID) flush() {
	if !h.hasPending || h.dev == nil {
		return
	}
	if h.dev.Transmit(h.cfg.InEP, h.pending[:h.pendingLen]) {
		h.hasPending = false
	}
}
