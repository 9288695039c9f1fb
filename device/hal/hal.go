package hal

// NumEndpoints is the number of endpoint registers of the peripheral.
const NumEndpoints = 8

// PacketMemorySize is the size of the packet memory area in bytes.
const PacketMemorySize = 1024

// UniqueIDSize is the size of the factory-programmed device identifier.
const UniqueIDSize = 12

// Interrupt status register (ISTR) bits. The event bits are cleared by
// writing 0 to them; writing 1 leaves them unchanged.
const (
	IntCTR    uint16 = 1 << 15 // Correct transfer (read-only summary)
	IntPMAOVR uint16 = 1 << 14 // Packet memory over/underrun
	IntERR    uint16 = 1 << 13 // Transaction error
	IntWKUP   uint16 = 1 << 12 // Wakeup
	IntSUSP   uint16 = 1 << 11 // Suspend request
	IntRESET  uint16 = 1 << 10 // Bus reset
	IntSOF    uint16 = 1 << 9  // Start of frame
	IntESOF   uint16 = 1 << 8  // Expected start of frame
	IntDIR    uint16 = 1 << 4  // Direction of the pending transfer (1 = OUT/SETUP)
	IntEPID   uint16 = 0x000F  // Endpoint of the pending transfer
)

// Control register (CNTR) bits.
const (
	CtrlCTRM    uint16 = 1 << 15 // Correct transfer interrupt mask
	CtrlPMAOVRM uint16 = 1 << 14 // Packet memory overrun interrupt mask
	CtrlERRM    uint16 = 1 << 13 // Error interrupt mask
	CtrlWKUPM   uint16 = 1 << 12 // Wakeup interrupt mask
	CtrlSUSPM   uint16 = 1 << 11 // Suspend interrupt mask
	CtrlRESETM  uint16 = 1 << 10 // Reset interrupt mask
	CtrlSOFM    uint16 = 1 << 9  // Start of frame interrupt mask
	CtrlESOFM   uint16 = 1 << 8  // Expected start of frame interrupt mask
	CtrlRESUME  uint16 = 1 << 4  // Resume request
	CtrlFSUSP   uint16 = 1 << 3  // Force suspend
	CtrlLPMODE  uint16 = 1 << 2  // Low-power mode
	CtrlPDWN    uint16 = 1 << 1  // Power down
	CtrlFRES    uint16 = 1 << 0  // Force reset
)

// Device address register (DADDR) bits.
const (
	AddrEnable uint16 = 1 << 7 // Enable function
	AddrMask   uint16 = 0x7F   // Device address
)

// Battery charging detector register (BCDR) bits.
const (
	BCDRDPPU uint16 = 1 << 15 // D+ pull-up
)

// Buffer descriptor table layout. Each endpoint owns four 16-bit words:
// ADDR_TX, COUNT_TX, ADDR_RX, COUNT_RX.
const (
	BufferEntrySize  = 8
	BufferTableSize  = NumEndpoints * BufferEntrySize
	offsetAddrTx     = 0
	offsetCountTx    = 2
	offsetAddrRx     = 4
	offsetCountRx    = 6
	CountMask        = 0x03FF  // Byte count field of COUNT_TX / COUNT_RX
	CountBlockSize   = 1 << 15 // COUNT_RX BL_SIZE: 32-byte blocks
	CountNumBlockPos = 10      // COUNT_RX NUM_BLOCK position
	CountNumBlock    = 0x1F << CountNumBlockPos
)

// Register16 is a 16-bit hardware register. TinyGo's
// runtime/volatile.Register16 satisfies it.
type Register16 interface {
	Get() uint16
	Set(value uint16)
}

// PacketMemory is the memory shared between the CPU and the peripheral.
// It is addressed in bytes but accessed in native 16-bit words; offsets
// passed to Load16 and Store16 are even.
type PacketMemory interface {
	Size() int
	Load16(offset uint16) uint16
	Store16(offset uint16, value uint16)
}

// Peripheral is a USB full-speed device controller.
type Peripheral interface {
	// EnableClock enables and resets the peripheral's bus clock.
	EnableClock()

	// Registers returns the register file of the peripheral.
	Registers() *Registers

	// PacketMemory returns the packet memory area.
	PacketMemory() PacketMemory

	// UniqueID returns the factory-programmed identifier of the chip.
	UniqueID() [UniqueIDSize]byte
}

// Registers is the register file of the peripheral.
type Registers struct {
	EPR    [NumEndpoints]Register16
	CNTR   Register16
	ISTR   Register16
	FNR    Register16
	DADDR  Register16
	BTABLE Register16
	BCDR   Register16
}

// EventMask selects the ISTR bits the engine reacts to.
const EventMask = IntCTR | IntWKUP | IntSUSP | IntRESET | IntSOF

// Events reads ISTR once and returns the bits selected by EventMask together
// with the pending endpoint number.
func (r *Registers) Events() (events uint16, endpoint uint8) {
	istr := r.ISTR.Get()
	return istr & EventMask, uint8(istr & IntEPID)
}

// Acknowledge clears the given ISTR event bits and leaves the others alone.
func (r *Registers) Acknowledge(bits uint16) {
	r.ISTR.Set(^bits)
}

// PowerUp takes the transceiver out of power-down.
func (r *Registers) PowerUp() {
	r.CNTR.Set(r.CNTR.Get() &^ CtrlPDWN)
}

// EnableInterrupts replaces the interrupt mask and releases the forced
// reset.
func (r *Registers) EnableInterrupts(mask uint16) {
	r.CNTR.Set(mask)
}

// SetSuspended enters or leaves the low-power suspend mode.
func (r *Registers) SetSuspended(suspend bool) {
	if suspend {
		r.CNTR.Set(r.CNTR.Get() | CtrlFSUSP)
		return
	}
	r.CNTR.Set(r.CNTR.Get() &^ CtrlFSUSP)
}

// Suspended reports whether the peripheral is in suspend mode.
func (r *Registers) Suspended() bool {
	return r.CNTR.Get()&CtrlFSUSP != 0
}

// SetDeviceAddress enables the function at the given address.
func (r *Registers) SetDeviceAddress(address uint8) {
	r.DADDR.Set(AddrEnable | uint16(address)&AddrMask)
}

// DeviceAddress returns the address the peripheral answers to.
func (r *Registers) DeviceAddress() uint8 {
	return uint8(r.DADDR.Get() & AddrMask)
}

// SetBufferTable places the buffer descriptor table at the given offset.
func (r *Registers) SetBufferTable(offset uint16) {
	r.BTABLE.Set(offset &^ 0x7)
}

// Connect enables the D+ pull-up so the host sees the device.
func (r *Registers) Connect() {
	r.BCDR.Set(r.BCDR.Get() | BCDRDPPU)
}

// Endpoint returns the control register handle of endpoint n.
func (r *Registers) Endpoint(n uint8) EPR {
	return EPR{reg: r.EPR[n&(NumEndpoints-1)]}
}

// BufferEntry addresses one endpoint's slot in the buffer descriptor table.
type BufferEntry struct {
	mem  PacketMemory
	base uint16
}

// Buffers returns the buffer descriptor table entry of endpoint n, for a
// table at offset table.
func Buffers(mem PacketMemory, table uint16, n uint8) BufferEntry {
	return BufferEntry{mem: mem, base: table + uint16(n)*BufferEntrySize}
}

// TxAddr returns the packet memory offset of the transmit buffer.
func (b BufferEntry) TxAddr() uint16 { return b.mem.Load16(b.base + offsetAddrTx) }

// RxAddr returns the packet memory offset of the receive buffer.
func (b BufferEntry) RxAddr() uint16 { return b.mem.Load16(b.base + offsetAddrRx) }

// TxCount returns the number of bytes queued for transmission.
func (b BufferEntry) TxCount() uint16 { return b.mem.Load16(b.base+offsetCountTx) & CountMask }

// RxCount returns the number of bytes received by the last OUT or SETUP.
func (b BufferEntry) RxCount() uint16 { return b.mem.Load16(b.base+offsetCountRx) & CountMask }

// RxField returns the raw COUNT_RX word.
func (b BufferEntry) RxField() uint16 { return b.mem.Load16(b.base + offsetCountRx) }

// SetTx programs the transmit buffer offset and byte count.
func (b BufferEntry) SetTx(addr, count uint16) {
	b.mem.Store16(b.base+offsetAddrTx, addr)
	b.mem.Store16(b.base+offsetCountTx, count&CountMask)
}

// SetTxCount sets the number of bytes to transmit.
func (b BufferEntry) SetTxCount(count uint16) {
	b.mem.Store16(b.base+offsetCountTx, count&CountMask)
}

// SetRx programs the receive buffer offset and the encoded COUNT_RX word.
func (b BufferEntry) SetRx(addr, field uint16) {
	b.mem.Store16(b.base+offsetAddrRx, addr)
	b.mem.Store16(b.base+offsetCountRx, field)
}

// SetRxCount stores a received byte count, preserving the block fields.
func (b BufferEntry) SetRxCount(count uint16) {
	field := b.mem.Load16(b.base + offsetCountRx)
	b.mem.Store16(b.base+offsetCountRx, field&^CountMask|count&CountMask)
}

// RxCapacity decodes the receive buffer capacity from a COUNT_RX word.
func RxCapacity(field uint16) uint16 {
	blocks := (field & CountNumBlock) >> CountNumBlockPos
	if field&CountBlockSize != 0 {
		return (blocks + 1) * 32
	}
	return blocks * 2
}

// RxCountField encodes a receive buffer capacity for COUNT_RX. Buffers of up
// to 62 bytes are described in 2-byte blocks, larger ones in 32-byte blocks.
func RxCountField(size uint16) uint16 {
	if size > 62 {
		return CountBlockSize | ((size/32-1)<<CountNumBlockPos)&CountNumBlock
	}
	return ((size / 2) << CountNumBlockPos) & CountNumBlock
}
