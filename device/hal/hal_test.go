package hal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/device/hal/sim"
)

func TestRxCountField(t *testing.T) {
	tests := []struct {
		size  uint16
		field uint16
	}{
		{2, 1 << 10},
		{8, 4 << 10},
		{62, 31 << 10},
		{64, 0x8000 | 1<<10},
		{96, 0x8000 | 2<<10},
		{512, 0x8000 | 15<<10},
	}
	for _, tt := range tests {
		field := hal.RxCountField(tt.size)
		assert.Equal(t, tt.field, field, "size %d", tt.size)
		assert.Equal(t, tt.size, hal.RxCapacity(field), "size %d", tt.size)
	}
}

func TestBufferEntry(t *testing.T) {
	p := sim.New()
	pm := p.PacketMemory()

	e := hal.Buffers(pm, 0, 2)
	e.SetTx(0x100, 0x4FF)
	e.SetRx(0x140, hal.RxCountField(64))

	assert.Equal(t, uint16(0x100), e.TxAddr())
	assert.Equal(t, uint16(0x0FF), e.TxCount())
	assert.Equal(t, uint16(0x140), e.RxAddr())
	assert.Equal(t, uint16(0), e.RxCount())

	e.SetRxCount(17)
	assert.Equal(t, uint16(17), e.RxCount())
	assert.Equal(t, uint16(64), hal.RxCapacity(e.RxField()))

	e.SetTxCount(9)
	assert.Equal(t, uint16(9), e.TxCount())

	// Entry 2 lives at bytes 16..23 of the table.
	assert.Equal(t, uint16(0x100), pm.Load16(16))
	assert.Equal(t, uint16(0x140), pm.Load16(20))
}

func TestRegisters(t *testing.T) {
	p := sim.New()
	p.EnableClock()
	regs := p.Registers()

	assert.NotZero(t, regs.CNTR.Get()&hal.CtrlPDWN)
	regs.PowerUp()
	assert.Zero(t, regs.CNTR.Get()&hal.CtrlPDWN)

	regs.EnableInterrupts(hal.CtrlCTRM | hal.CtrlRESETM)
	assert.Equal(t, hal.CtrlCTRM|hal.CtrlRESETM, regs.CNTR.Get())

	regs.SetSuspended(true)
	assert.True(t, regs.Suspended())
	regs.SetSuspended(false)
	assert.False(t, regs.Suspended())

	regs.SetDeviceAddress(0x85)
	assert.Equal(t, uint8(0x05), regs.DeviceAddress())
	assert.Equal(t, hal.AddrEnable|0x05, regs.DADDR.Get())

	assert.False(t, p.Connected())
	regs.Connect()
	assert.True(t, p.Connected())
}

func TestRegistersEvents(t *testing.T) {
	p := sim.New()
	p.EnableClock()
	regs := p.Registers()

	p.BusReset()
	p.StartOfFrame()
	ev, _ := regs.Events()
	assert.Equal(t, hal.IntRESET|hal.IntSOF, ev)

	regs.Acknowledge(hal.IntRESET)
	ev, _ = regs.Events()
	assert.Equal(t, hal.IntSOF, ev)

	regs.Acknowledge(hal.IntSOF)
	ev, _ = regs.Events()
	assert.Zero(t, ev)
}
