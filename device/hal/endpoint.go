package hal

// Endpoint register (EPnR) bits.
//
// The register mixes three kinds of bits: CTR_RX and CTR_TX are cleared by
// writing 0 and unaffected by writing 1; DTOG_* and STAT_* toggle when
// written 1 and are unaffected by writing 0; the remaining fields are plain
// read/write (SETUP is read-only).
const (
	EPCTRRx  uint16 = 1 << 15 // Correct transfer for reception
	EPDTOGRx uint16 = 1 << 14 // Data toggle for reception
	EPStatRx uint16 = 3 << 12 // Status for reception
	EPSetup  uint16 = 1 << 11 // Last reception was a SETUP
	EPType   uint16 = 3 << 9  // Endpoint type
	EPKind   uint16 = 1 << 8  // Endpoint kind
	EPCTRTx  uint16 = 1 << 7  // Correct transfer for transmission
	EPDTOGTx uint16 = 1 << 6  // Data toggle for transmission
	EPStatTx uint16 = 3 << 4  // Status for transmission
	EPAddr   uint16 = 0x000F  // Endpoint address

	// EPRegMask selects the bits that are written back unchanged by a
	// read-modify-write that must not toggle anything.
	EPRegMask = EPCTRRx | EPSetup | EPType | EPKind | EPCTRTx | EPAddr

	statRxPos = 12
	statTxPos = 4
)

// EndpointKind is the hardware encoding of the endpoint type field.
type EndpointKind uint16

// Endpoint type field values.
const (
	KindBulk        EndpointKind = 0 << 9
	KindControl     EndpointKind = 1 << 9
	KindIsochronous EndpointKind = 2 << 9
	KindInterrupt   EndpointKind = 3 << 9
)

// String returns the name of the endpoint kind.
func (k EndpointKind) String() string {
	switch k {
	case KindBulk:
		return "bulk"
	case KindControl:
		return "control"
	case KindIsochronous:
		return "isochronous"
	case KindInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Status is the handshake an endpoint direction gives to the next token.
type Status uint16

// Endpoint direction status values.
const (
	StatusDisabled Status = 0 // Tokens are ignored
	StatusStall    Status = 1 // STALL handshake
	StatusNAK      Status = 2 // NAK handshake
	StatusValid    Status = 3 // Ready for a transaction
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusStall:
		return "stall"
	case StatusNAK:
		return "nak"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Direction selects the transmit (IN) or receive (OUT) half of an endpoint.
type Direction uint8

// Endpoint directions.
const (
	DirOut Direction = 0 // Host to device (reception)
	DirIn  Direction = 1 // Device to host (transmission)
)

// String returns "IN" or "OUT".
func (d Direction) String() string {
	if d == DirIn {
		return "IN"
	}
	return "OUT"
}

// EndpointRegister is the control register of one endpoint, expressed as
// the operations the engine performs on it.
type EndpointRegister interface {
	// Reset disables both directions and clears type, address and toggles.
	Reset()

	// Configure sets the endpoint type and the address it answers to.
	Configure(kind EndpointKind, address uint8)

	// Kind returns the configured endpoint type.
	Kind() EndpointKind

	// Address returns the configured endpoint address.
	Address() uint8

	// Status returns the current status of a direction.
	Status(dir Direction) Status

	// SetStatus changes the status of a direction.
	SetStatus(dir Direction, status Status)

	// Enable makes a direction ready with the data toggle reset to DATA0:
	// IN answers NAK until data is queued, OUT accepts the next packet.
	Enable(dir Direction)

	// SetStall halts a direction.
	SetStall(dir Direction)

	// IsStalled reports whether a direction is halted.
	IsStalled(dir Direction) bool

	// Completed reports whether a transfer completed in a direction.
	Completed(dir Direction) bool

	// Acknowledge clears the transfer-complete flag of a direction.
	Acknowledge(dir Direction)

	// IsSetup reports whether the last reception was a SETUP transaction.
	IsSetup() bool

	// DataToggle reports the data toggle bit of a direction.
	DataToggle(dir Direction) bool
}

// EPR implements EndpointRegister on a memory-mapped EPnR register.
type EPR struct {
	reg Register16
}

// NewEPR wraps a raw endpoint register.
func NewEPR(reg Register16) EPR {
	return EPR{reg: reg}
}

func statBits(dir Direction) (mask uint16, pos uint) {
	if dir == DirIn {
		return EPStatTx, statTxPos
	}
	return EPStatRx, statRxPos
}

func toggleBit(dir Direction) uint16 {
	if dir == DirIn {
		return EPDTOGTx
	}
	return EPDTOGRx
}

func ctrBit(dir Direction) uint16 {
	if dir == DirIn {
		return EPCTRTx
	}
	return EPCTRRx
}

// Reset writes the current toggle bits back onto themselves, which brings
// every status and toggle field to zero, and clears the read/write fields.
func (e EPR) Reset() {
	e.reg.Set(e.reg.Get() &^ EPRegMask)
}

func (e EPR) Configure(kind EndpointKind, address uint8) {
	v := e.reg.Get() & (EPRegMask &^ (EPType | EPKind | EPAddr))
	e.reg.Set(v | uint16(kind)&EPType | uint16(address)&EPAddr)
}

func (e EPR) Kind() EndpointKind {
	return EndpointKind(e.reg.Get() & EPType)
}

func (e EPR) Address() uint8 {
	return uint8(e.reg.Get() & EPAddr)
}

func (e EPR) Status(dir Direction) Status {
	mask, pos := statBits(dir)
	return Status((e.reg.Get() & mask) >> pos)
}

// SetStatus writes current^wanted into the STAT field so the toggle lands on
// the wanted value.
func (e EPR) SetStatus(dir Direction, status Status) {
	mask, pos := statBits(dir)
	cur := e.reg.Get()
	e.reg.Set((cur ^ uint16(status)<<pos) & (EPRegMask | mask))
}

func (e EPR) Enable(dir Direction) {
	want := StatusValid
	if dir == DirIn {
		want = StatusNAK
	}
	mask, pos := statBits(dir)
	cur := e.reg.Get()
	e.reg.Set((cur ^ uint16(want)<<pos) & (EPRegMask | mask | toggleBit(dir)))
}

func (e EPR) SetStall(dir Direction) {
	e.SetStatus(dir, StatusStall)
}

func (e EPR) IsStalled(dir Direction) bool {
	return e.Status(dir) == StatusStall
}

func (e EPR) Completed(dir Direction) bool {
	return e.reg.Get()&ctrBit(dir) != 0
}

func (e EPR) Acknowledge(dir Direction) {
	e.reg.Set(e.reg.Get() & (EPRegMask ^ ctrBit(dir)))
}

func (e EPR) IsSetup() bool {
	return e.reg.Get()&EPSetup != 0
}

func (e EPR) DataToggle(dir Direction) bool {
	return e.reg.Get()&toggleBit(dir) != 0
}

var _ EndpointRegister = EPR{}
