package device

// Descriptors supplies the descriptor bytes the engine serves. Each method
// returns the complete descriptor, or nil if it does not exist. The returned
// slice must stay valid and unchanged until the control transfer sending it
// completes.
type Descriptors interface {
	// DeviceDescriptor returns the 18-byte device descriptor.
	DeviceDescriptor() []byte

	// ConfigurationDescriptor returns the configuration descriptor followed
	// by all interface, class and endpoint descriptors (wTotalLength bytes).
	ConfigurationDescriptor() []byte

	// InterfaceDescriptor returns the 9-byte descriptor of interface n.
	InterfaceDescriptor(n uint16) []byte

	// StringDescriptor returns string descriptor index in language lang.
	// Index 0 is the table of supported languages.
	StringDescriptor(lang uint16, index uint8) []byte
}

// Hooks are the optional callbacks of a device. A nil field means the
// firmware does not care about that event. The set is captured when the
// device is created.
type Hooks struct {
	// Reset is called twice for every bus reset: with before set before the
	// endpoints are reset and with before cleared once endpoint 0 is armed
	// again.
	Reset func(before bool)

	// AddressAssigned is called when SET_ADDRESS is accepted. The address
	// takes effect after the status stage.
	AddressAssigned func(address uint8)

	// Suspend is called when the bus goes idle and the peripheral enters
	// low-power mode.
	Suspend func()

	// Resume is called when bus activity resumes.
	Resume func()

	// OutReady is called when data arrived on an OUT endpoint. The firmware
	// collects it with Receive, which also re-arms the endpoint.
	OutReady func(ep uint8)

	// InReady is called when an IN endpoint can take a new packet: after a
	// transmission completed and, round-robin once per frame, while the
	// endpoint idles with nothing queued. Setting it enables the
	// start-of-frame interrupt.
	InReady func(ep uint8)

	// ClassRequest handles class-specific control requests. It returns
	// false to reject the request. A device-to-host request answers with
	// Device.ControlIn.
	ClassRequest func(d *Device, setup *SetupPacket) bool

	// VendorRequest handles vendor-specific control requests.
	VendorRequest func(d *Device, setup *SetupPacket) bool

	// InterfaceDescriptorRequest handles GET_DESCRIPTOR addressed to an
	// interface, such as a HID report descriptor.
	InterfaceDescriptorRequest func(d *Device, setup *SetupPacket) bool

	// ControlOut receives each data packet of a host-to-device control
	// transfer accepted by ClassRequest or VendorRequest.
	ControlOut func(d *Device, data []byte)
}
