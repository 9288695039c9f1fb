package sim

import (
	"encoding/binary"
	"sync"

	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// Bits of an EPnR register grouped by write behaviour.
const (
	eprClearOnZero = hal.EPCTRRx | hal.EPCTRTx
	eprToggle      = hal.EPDTOGRx | hal.EPStatRx | hal.EPDTOGTx | hal.EPStatTx
	eprReadWrite   = hal.EPType | hal.EPKind | hal.EPAddr
)

// ISTR event bits that software clears by writing 0.
const istrClearOnZero = hal.IntPMAOVR | hal.IntERR | hal.IntWKUP | hal.IntSUSP |
	hal.IntRESET | hal.IntSOF | hal.IntESOF

// Reset value of CNTR: forced reset and powered down.
const cntrResetValue = hal.CtrlFRES | hal.CtrlPDWN

// DefaultUniqueID is the identifier reported by a Peripheral created without
// WithUniqueID.
var DefaultUniqueID = [hal.UniqueIDSize]byte{
	0x32, 0x00, 0x41, 0x00, 0x0B, 0x51, 0x34, 0x33, 0x39, 0x38, 0x36, 0x31,
}

// Peripheral is a software model of the USB full-speed device peripheral.
// The CPU side is reached through the hal.Peripheral interface; the bus side
// through the transaction methods (Setup, Out, In, BusReset, ...), which
// return the handshake the device gives.
//
// All registers and the packet memory share one lock, so the device engine
// and a host may run in different goroutines.
type Peripheral struct {
	mu sync.Mutex

	regs hal.Registers
	epr  [hal.NumEndpoints]eprRegister
	cntr plainRegister
	istr istrRegister
	fnr  plainRegister
	dadr plainRegister
	btbl plainRegister
	bcdr plainRegister
	pma  packetMemory

	uid     [hal.UniqueIDSize]byte
	clocked bool
}

// Option configures a Peripheral.
type Option func(*Peripheral)

// WithUniqueID sets the factory identifier the peripheral reports.
func WithUniqueID(id [hal.UniqueIDSize]byte) Option {
	return func(p *Peripheral) { p.uid = id }
}

// New creates a peripheral in its reset state.
func New(opts ...Option) *Peripheral {
	p := &Peripheral{uid: DefaultUniqueID}
	for i := range p.epr {
		p.epr[i].p = p
		p.regs.EPR[i] = &p.epr[i]
	}
	p.cntr = plainRegister{p: p, v: cntrResetValue}
	p.istr.p = p
	p.fnr.p, p.dadr.p, p.btbl.p, p.bcdr.p = p, p, p, p
	p.fnr.readOnly = true

	p.regs.CNTR = &p.cntr
	p.regs.ISTR = &p.istr
	p.regs.FNR = &p.fnr
	p.regs.DADDR = &p.dadr
	p.regs.BTABLE = &p.btbl
	p.regs.BCDR = &p.bcdr

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnableClock enables the peripheral clock and pulses its reset.
func (p *Peripheral) EnableClock() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clocked = true
	for i := range p.epr {
		p.epr[i].v = 0
	}
	p.cntr.v = cntrResetValue
	p.istr.v = 0
	p.fnr.v = 0
	p.dadr.v = 0
	p.btbl.v = 0
	p.bcdr.v = 0
	pkg.LogDebug(pkg.ComponentSim, "clock enabled")
}

// Registers returns the CPU view of the register file.
func (p *Peripheral) Registers() *hal.Registers { return &p.regs }

// PacketMemory returns the CPU view of the packet memory.
func (p *Peripheral) PacketMemory() hal.PacketMemory { return cpuMemory{p: p} }

// UniqueID returns the factory identifier.
func (p *Peripheral) UniqueID() [hal.UniqueIDSize]byte { return p.uid }

// Clocked reports whether EnableClock has been called.
func (p *Peripheral) Clocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clocked
}

// Connected reports whether the D+ pull-up is enabled.
func (p *Peripheral) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bcdr.v&hal.BCDRDPPU != 0
}

// Pending reports whether an enabled interrupt is waiting for service.
func (p *Peripheral) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.istr.value()&p.cntr.v&0xFF00 != 0
}

// BusReset signals a USB reset. The peripheral clears every endpoint register
// and the device address before raising the RESET event.
func (p *Peripheral) BusReset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.epr {
		p.epr[i].v = 0
	}
	p.dadr.v = 0
	p.istr.v |= hal.IntRESET
	pkg.LogDebug(pkg.ComponentSim, "bus reset")
}

// Suspend signals three idle milliseconds on the bus.
func (p *Peripheral) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.istr.v |= hal.IntSUSP
}

// Wakeup signals resume activity on the bus.
func (p *Peripheral) Wakeup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.istr.v |= hal.IntWKUP
}

// StartOfFrame signals a start-of-frame token and advances the frame number.
func (p *Peripheral) StartOfFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fnr.v = (p.fnr.v + 1) & 0x07FF
	p.istr.v |= hal.IntSOF
}

// Setup delivers a SETUP transaction to endpoint ep of the function at
// address addr. A control endpoint accepts SETUP even when stalled; both
// directions are then set to NAK until the firmware has looked at it.
func (p *Peripheral) Setup(addr, ep uint8, packet []byte) pkg.Handshake {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.lookup(addr, ep, hal.DirOut)
	if !ok {
		return pkg.HandshakeNone
	}
	r := &p.epr[n]
	if hal.EndpointKind(r.v&hal.EPType) != hal.KindControl {
		return pkg.HandshakeNone
	}
	if !p.receive(n, packet) {
		return pkg.HandshakeError
	}
	r.v |= hal.EPCTRRx | hal.EPSetup | hal.EPDTOGRx | hal.EPDTOGTx
	r.v = setStat(r.v, hal.DirOut, hal.StatusNAK)
	r.v = setStat(r.v, hal.DirIn, hal.StatusNAK)
	return pkg.HandshakeACK
}

// Out delivers an OUT transaction carrying data to endpoint ep.
func (p *Peripheral) Out(addr, ep uint8, data []byte) pkg.Handshake {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.lookup(addr, ep, hal.DirOut)
	if !ok {
		return pkg.HandshakeNone
	}
	r := &p.epr[n]
	if hs := handshake(stat(r.v, hal.DirOut)); hs != pkg.HandshakeACK {
		return hs
	}
	if !p.receive(n, data) {
		return pkg.HandshakeError
	}
	r.v = (r.v | hal.EPCTRRx) &^ hal.EPSetup
	r.v ^= hal.EPDTOGRx
	r.v = setStat(r.v, hal.DirOut, hal.StatusNAK)
	return pkg.HandshakeACK
}

// In issues an IN token to endpoint ep and returns the packet the device
// had queued.
func (p *Peripheral) In(addr, ep uint8) ([]byte, pkg.Handshake) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.lookup(addr, ep, hal.DirIn)
	if !ok {
		return nil, pkg.HandshakeNone
	}
	r := &p.epr[n]
	if hs := handshake(stat(r.v, hal.DirIn)); hs != pkg.HandshakeACK {
		return nil, hs
	}

	e := hal.Buffers(&p.pma, p.btbl.v, n)
	addrTx, count := e.TxAddr(), e.TxCount()
	if int(addrTx)+int(count) > hal.PacketMemorySize {
		p.istr.v |= hal.IntPMAOVR
		return nil, pkg.HandshakeError
	}
	data := make([]byte, count)
	copy(data, p.pma.b[addrTx:addrTx+count])

	r.v |= hal.EPCTRTx
	r.v ^= hal.EPDTOGTx
	r.v = setStat(r.v, hal.DirIn, hal.StatusNAK)
	return data, pkg.HandshakeACK
}

// EndpointStatus returns the status of one direction of endpoint register n.
func (p *Peripheral) EndpointStatus(n uint8, dir hal.Direction) hal.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return hal.Status(stat(p.epr[n%hal.NumEndpoints].v, dir))
}

// Snapshot returns a copy of the packet memory.
func (p *Peripheral) Snapshot() [hal.PacketMemorySize]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pma.b
}

// lookup finds the endpoint register answering to addr/ep in direction dir.
func (p *Peripheral) lookup(addr, ep uint8, dir hal.Direction) (uint8, bool) {
	if !p.clocked || p.bcdr.v&hal.BCDRDPPU == 0 {
		return 0, false
	}
	if p.dadr.v&hal.AddrEnable == 0 || uint8(p.dadr.v&hal.AddrMask) != addr {
		return 0, false
	}
	for i := range p.epr {
		v := p.epr[i].v
		if uint8(v&hal.EPAddr) == ep && stat(v, dir) != uint16(hal.StatusDisabled) {
			return uint8(i), true
		}
	}
	return 0, false
}

// receive copies data into the receive buffer of endpoint register n and
// records the byte count.
func (p *Peripheral) receive(n uint8, data []byte) bool {
	e := hal.Buffers(&p.pma, p.btbl.v, n)
	addrRx := e.RxAddr()
	if len(data) > int(hal.RxCapacity(e.RxField())) ||
		int(addrRx)+len(data) > hal.PacketMemorySize {
		p.istr.v |= hal.IntERR
		return false
	}
	copy(p.pma.b[addrRx:], data)
	e.SetRxCount(uint16(len(data)))
	return true
}

func statShift(dir hal.Direction) (uint16, uint) {
	if dir == hal.DirIn {
		return hal.EPStatTx, 4
	}
	return hal.EPStatRx, 12
}

func stat(v uint16, dir hal.Direction) uint16 {
	mask, pos := statShift(dir)
	return (v & mask) >> pos
}

func setStat(v uint16, dir hal.Direction, s hal.Status) uint16 {
	mask, pos := statShift(dir)
	return v&^mask | uint16(s)<<pos&mask
}

func handshake(status uint16) pkg.Handshake {
	switch hal.Status(status) {
	case hal.StatusValid:
		return pkg.HandshakeACK
	case hal.StatusNAK:
		return pkg.HandshakeNAK
	case hal.StatusStall:
		return pkg.HandshakeStall
	default:
		return pkg.HandshakeNone
	}
}

// eprRegister models the write semantics of an EPnR register.
type eprRegister struct {
	p *Peripheral
	v uint16
}

func (r *eprRegister) Get() uint16 {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return r.v
}

func (r *eprRegister) Set(w uint16) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	v := r.v & (w | ^eprClearOnZero) & eprClearOnZero
	v |= (r.v ^ w) & eprToggle
	v |= w & eprReadWrite
	v |= r.v & hal.EPSetup
	r.v = v
}

// istrRegister models ISTR. CTR, DIR and EP_ID are derived from the endpoint
// registers; the event bits are cleared by writing 0.
type istrRegister struct {
	p *Peripheral
	v uint16
}

func (r *istrRegister) value() uint16 {
	v := r.v & istrClearOnZero
	for i := range r.p.epr {
		e := r.p.epr[i].v
		if e&(hal.EPCTRRx|hal.EPCTRTx) == 0 {
			continue
		}
		v |= hal.IntCTR | uint16(i)
		if e&hal.EPCTRRx != 0 {
			v |= hal.IntDIR
		}
		break
	}
	return v
}

func (r *istrRegister) Get() uint16 {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return r.value()
}

func (r *istrRegister) Set(w uint16) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	r.v &= w | ^istrClearOnZero
}

// plainRegister is a read/write register.
type plainRegister struct {
	p        *Peripheral
	v        uint16
	readOnly bool
}

func (r *plainRegister) Get() uint16 {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return r.v
}

func (r *plainRegister) Set(w uint16) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	if !r.readOnly {
		r.v = w
	}
}

// packetMemory is the 1024-byte packet memory area as the peripheral sees
// it. Callers hold the lock.
type packetMemory struct {
	b [hal.PacketMemorySize]byte
}

func (m *packetMemory) Size() int { return len(m.b) }

func (m *packetMemory) Load16(off uint16) uint16 {
	return binary.LittleEndian.Uint16(m.b[off&^1:])
}

func (m *packetMemory) Store16(off uint16, v uint16) {
	binary.LittleEndian.PutUint16(m.b[off&^1:], v)
}

// cpuMemory is the CPU view of the packet memory.
type cpuMemory struct {
	p *Peripheral
}

func (m cpuMemory) Size() int { return hal.PacketMemorySize }

func (m cpuMemory) Load16(off uint16) uint16 {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	return m.p.pma.Load16(off)
}

func (m cpuMemory) Store16(off uint16, v uint16) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	m.p.pma.Store16(off, v)
}
