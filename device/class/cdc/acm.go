package cdc

import (
	"github.com/ardnew/usbdfs/device"
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// BufferSize is the capacity of each of the receive and transmit buffers.
const BufferSize = 256

// Config places a CDC-ACM function in a device.
type Config struct {
	Interface   uint8  // Communications interface; the data interface is Interface+1
	NotifyEP    uint8  // Interrupt IN endpoint number for notifications
	DataEP      uint8  // Bulk endpoint number, used in both directions
	NotifySize  uint16 // Notification packet size
	DataSize    uint16 // Bulk packet size
	Interval    uint8  // Notification polling interval in frames
	Association bool   // Precede the interfaces with an interface association
}

// ACM is a CDC Abstract Control Model function: a virtual serial port.
//
// Read and Write never block. Like the engine, an ACM is not safe for
// concurrent use: call them from the context that runs Task.
type ACM struct {
	cfg Config
	dev *device.Device

	line          LineCoding
	lineState     uint16
	setLineCoding bool // SET_LINE_CODING waiting for its data stage

	rx, tx ring
	rxHeld bool // a packet sits in the OUT buffer until rx has room
	txFull bool // last packet was full size, end the transfer with a ZLP

	notify        [SerialStateSize]byte
	notifyPending bool

	reply [LineCodingSize]byte
	pkt   [device.MaxPacketSize]byte

	onLineCoding  func(LineCoding)
	onControlLine func(dtr, rts bool)
	onBreak       func(millis uint16)
	onReceive     func()
}

// NewACM creates a CDC-ACM function.
func NewACM(cfg Config) *ACM {
	if cfg.NotifySize == 0 {
		cfg.NotifySize = 16
	}
	if cfg.DataSize == 0 {
		cfg.DataSize = device.MaxPacketSize
	}
	cfg.DataSize = min(cfg.DataSize, device.MaxPacketSize)
	if cfg.Interval == 0 {
		cfg.Interval = 16
	}
	return &ACM{cfg: cfg, line: DefaultLineCoding}
}

// SetOnLineCoding sets the function called when the host changes the line
// coding.
func (a *ACM) SetOnLineCoding(cb func(LineCoding)) { a.onLineCoding = cb }

// SetOnControlLine sets the function called when the host changes DTR or RTS.
func (a *ACM) SetOnControlLine(cb func(dtr, rts bool)) { a.onControlLine = cb }

// SetOnBreak sets the function called when the host sends a break.
func (a *ACM) SetOnBreak(cb func(millis uint16)) { a.onBreak = cb }

// SetOnReceive sets the function called after data from the host has been
// buffered.
func (a *ACM) SetOnReceive(cb func()) { a.onReceive = cb }

// LineCoding returns the line coding set by the host.
func (a *ACM) LineCoding() LineCoding { return a.line }

// DTR reports whether the host asserts Data Terminal Ready.
func (a *ACM) DTR() bool { return a.lineState&ControlLineDTR != 0 }

// RTS reports whether the host asserts Request To Send.
func (a *ACM) RTS() bool { return a.lineState&ControlLineRTS != 0 }

// Endpoints adds the function's endpoints to cfg.
func (a *ACM) Endpoints(cfg *device.Config) {
	cfg.Endpoints[a.cfg.NotifyEP] = device.EndpointConfig{
		Type:   device.EndpointTypeInterrupt,
		InSize: a.cfg.NotifySize,
	}
	cfg.Endpoints[a.cfg.DataEP] = device.EndpointConfig{
		Type:    device.EndpointTypeBulk,
		InSize:  a.cfg.DataSize,
		OutSize: a.cfg.DataSize,
	}
}

// Descriptors returns the descriptors of both interfaces of the function, in
// configuration descriptor order.
func (a *ACM) Descriptors() [][]byte {
	comm, data := a.cfg.Interface, a.cfg.Interface+1

	var parts [][]byte
	if a.cfg.Association {
		parts = append(parts, associationDescriptor(comm))
	}
	ctrl := device.InterfaceDescriptor{
		InterfaceNumber:   comm,
		NumEndpoints:      1,
		InterfaceClass:    ClassComm,
		InterfaceSubClass: SubclassACM,
		InterfaceProtocol: ProtocolAT,
	}
	notify := device.EndpointDescriptor{
		EndpointAddress: a.cfg.NotifyEP | hal.EndpointDirectionIn,
		Attributes:      device.EndpointAttrInterrupt,
		MaxPacketSize:   a.cfg.NotifySize,
		Interval:        a.cfg.Interval,
	}
	dataItf := device.InterfaceDescriptor{
		InterfaceNumber: data,
		NumEndpoints:    2,
		InterfaceClass:  ClassData,
	}
	out := device.EndpointDescriptor{
		EndpointAddress: a.cfg.DataEP,
		Attributes:      device.EndpointAttrBulk,
		MaxPacketSize:   a.cfg.DataSize,
	}
	in := device.EndpointDescriptor{
		EndpointAddress: a.cfg.DataEP | hal.EndpointDirectionIn,
		Attributes:      device.EndpointAttrBulk,
		MaxPacketSize:   a.cfg.DataSize,
	}
	return append(parts,
		ctrl.Bytes(), functionalDescriptors(comm, data), notify.Bytes(),
		dataItf.Bytes(), out.Bytes(), in.Bytes())
}

// Install wires the function into hooks, keeping callbacks already present
// for everything the function does not own.
func (a *ACM) Install(hooks *device.Hooks) {
	class, ctrlOut := hooks.ClassRequest, hooks.ControlOut
	inReady, outReady, reset := hooks.InReady, hooks.OutReady, hooks.Reset

	hooks.ClassRequest = func(d *device.Device, s *device.SetupPacket) bool {
		if s.Recipient() == hal.RequestRecipientInterface && s.Index == uint16(a.cfg.Interface) {
			return a.handleRequest(d, s)
		}
		return class != nil && class(d, s)
	}
	hooks.ControlOut = func(d *device.Device, data []byte) {
		if a.setLineCoding {
			a.completeLineCoding(data)
			return
		}
		if ctrlOut != nil {
			ctrlOut(d, data)
		}
	}
	hooks.InReady = func(ep uint8) {
		switch ep {
		case a.cfg.DataEP:
			a.flush()
		case a.cfg.NotifyEP:
			a.flushNotify()
		default:
			if inReady != nil {
				inReady(ep)
			}
		}
	}
	hooks.OutReady = func(ep uint8) {
		if ep == a.cfg.DataEP {
			a.receive()
			return
		}
		if outReady != nil {
			outReady(ep)
		}
	}
	hooks.Reset = func(before bool) {
		if !before {
			a.reset()
		}
		if reset != nil {
			reset(before)
		}
	}
}

// Attach binds the function to the device it was installed into.
func (a *ACM) Attach(d *device.Device) { a.dev = d }

func (a *ACM) reset() {
	a.line = DefaultLineCoding
	a.lineState = 0
	a.setLineCoding = false
	a.rx.reset()
	a.tx.reset()
	a.rxHeld = false
	a.txFull = false
	a.notifyPending = false
}

func (a *ACM) configured() bool {
	return a.dev != nil && a.dev.State() == device.StateConfigured
}

// handleRequest processes the class requests addressed to the
// communications interface.
func (a *ACM) handleRequest(d *device.Device, s *device.SetupPacket) bool {
	a.setLineCoding = false

	switch s.Request {
	case RequestSetLineCoding:
		if s.IsDeviceToHost() || s.Length != LineCodingSize {
			return false
		}
		a.setLineCoding = true

	case RequestGetLineCoding:
		if s.IsHostToDevice() {
			return false
		}
		a.line.MarshalTo(a.reply[:])
		d.ControlIn(a.reply[:], s.Length)

	case RequestSetControlLineState:
		if s.IsDeviceToHost() {
			return false
		}
		a.lineState = s.Value
		if a.onControlLine != nil {
			a.onControlLine(a.DTR(), a.RTS())
		}

	case RequestSendBreak:
		if s.IsDeviceToHost() {
			return false
		}
		if a.onBreak != nil {
			a.onBreak(s.Value)
		}

	default:
		return false
	}

	pkg.LogDebug(pkg.ComponentClass, "acm request", "setup", s)
	return true
}

// completeLineCoding applies the data stage of SET_LINE_CODING.
func (a *ACM) completeLineCoding(data []byte) {
	a.setLineCoding = false
	if !ParseLineCoding(data, &a.line) {
		pkg.LogWarn(pkg.ComponentClass, "short line coding", "len", len(data))
		return
	}
	pkg.LogDebug(pkg.ComponentClass, "line coding",
		"rate", a.line.Rate, "data", a.line.DataBits,
		"parity", a.line.Parity, "stop", a.line.StopBits)
	if a.onLineCoding != nil {
		a.onLineCoding(a.line)
	}
}

// receive moves a packet from the OUT buffer into rx, or leaves it in place
// with the endpoint answering NAK while rx cannot hold a full packet.
func (a *ACM) receive() {
	if a.dev == nil {
		return
	}
	if a.rx.free() < int(a.cfg.DataSize) {
		a.rxHeld = true
		return
	}
	a.rxHeld = false
	n := a.dev.Receive(a.cfg.DataEP, a.pkt[:a.cfg.DataSize])
	a.rx.write(a.pkt[:min(n, int(a.cfg.DataSize))])
	if a.onReceive != nil {
		a.onReceive()
	}
}

// Read copies buffered data from the host into p and returns the number of
// bytes copied, which is 0 when nothing is buffered.
func (a *ACM) Read(p []byte) (int, error) {
	if !a.configured() {
		return 0, pkg.ErrNotConfigured
	}
	n := a.rx.read(p)
	if a.rxHeld && a.rx.free() >= int(a.cfg.DataSize) {
		a.receive()
	}
	return n, nil
}

// Buffered returns the number of received bytes waiting to be read.
func (a *ACM) Buffered() int { return a.rx.n }

// Write queues p for the host. It returns pkg.ErrBufferFull with the number
// of bytes taken when the transmit buffer cannot hold all of p.
func (a *ACM) Write(p []byte) (int, error) {
	if !a.configured() {
		return 0, pkg.ErrNotConfigured
	}
	n := a.tx.write(p)
	if a.idle(a.cfg.DataEP) {
		a.flush()
	}
	if n < len(p) {
		return n, pkg.ErrBufferFull
	}
	return n, nil
}

// Pending returns the number of bytes not yet handed to the endpoint.
func (a *ACM) Pending() int { return a.tx.n }

func (a *ACM) idle(ep uint8) bool {
	return a.dev.Endpoint(ep).Status(hal.DirIn) == hal.StatusNAK
}

// flush hands the next packet of tx to the IN endpoint. A transfer that ends
// on a full packet is closed with a zero-length packet.
func (a *ACM) flush() {
	if a.dev == nil {
		return
	}
	n := a.tx.peek(a.pkt[:a.cfg.DataSize])
	if n == 0 {
		if a.txFull && a.dev.Transmit(a.cfg.DataEP, nil) {
			a.txFull = false
		}
		return
	}
	if a.dev.Transmit(a.cfg.DataEP, a.pkt[:n]) {
		a.tx.discard(n)
		a.txFull = n == int(a.cfg.DataSize)
	}
}

// SendSerialState queues a SERIAL_STATE notification with the given
// SerialState bits. A notification not yet read by the host is replaced.
func (a *ACM) SendSerialState(state uint16) error {
	if !a.configured() {
		return pkg.ErrNotConfigured
	}
	a.notify = [SerialStateSize]byte{
		hal.RequestDirectionDeviceToHost | hal.RequestTypeClass | hal.RequestRecipientInterface,
		NotificationSerialState,
		0, 0,
		a.cfg.Interface, 0,
		2, 0,
		byte(state), byte(state >> 8),
	}
	a.notifyPending = true
	if a.idle(a.cfg.NotifyEP) {
		a.flushNotify()
	}
	return nil
}

func (a *ACM) flushNotify() {
	if !a.notifyPending || a.dev == nil {
		return
	}
	if a.dev.Transmit(a.cfg.NotifyEP, a.notify[:]) {
		a.notifyPending = false
	}
}
