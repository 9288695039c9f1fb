package device

import (
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// Init brings the peripheral up: clock, power, buffer descriptor table,
// interrupt mask and finally the D+ pull-up, after which the host sees the
// device and starts with a bus reset.
func (d *Device) Init() {
	d.periph.EnableClock()
	d.regs.PowerUp()
	d.layout.program(d.pma)
	d.regs.SetBufferTable(0)
	d.regs.ISTR.Set(0)

	mask := hal.CtrlCTRM | hal.CtrlWKUPM | hal.CtrlSUSPM | hal.CtrlRESETM
	if d.hooks.InReady != nil {
		mask |= hal.CtrlSOFM
	}
	d.regs.EnableInterrupts(mask)
	d.regs.Connect()

	pkg.LogInfo(pkg.ComponentDevice, "initialized", "sof", d.hooks.InReady != nil)
}

// Task services one pending peripheral event. It is cheap to call when
// nothing is pending and may run from the USB interrupt or a main loop, but
// never from both.
//
// Events are taken in priority order: wakeup, suspend, bus reset, start of
// frame, transfer completion.
func (d *Device) Task() {
	events, ep := d.regs.Events()
	if events == 0 {
		return
	}

	switch {
	case events&hal.IntWKUP != 0:
		d.regs.Acknowledge(hal.IntSUSP | hal.IntWKUP)
		d.regs.SetSuspended(false)
		pkg.LogDebug(pkg.ComponentDevice, "resume")
		if d.hooks.Resume != nil {
			d.hooks.Resume()
		}

	case events&hal.IntSUSP != 0:
		d.regs.Acknowledge(hal.IntSUSP)
		d.regs.SetSuspended(true)
		pkg.LogDebug(pkg.ComponentDevice, "suspend")
		if d.hooks.Suspend != nil {
			d.hooks.Suspend()
		}

	case events&hal.IntRESET != 0:
		d.regs.Acknowledge(hal.IntRESET)
		d.reset()

	default:
		if events&hal.IntSOF != 0 {
			d.regs.Acknowledge(hal.IntSOF)
			if d.startOfFrame() {
				return
			}
		}
		if events&hal.IntCTR != 0 {
			d.transferComplete(ep)
		}
	}
}

// reset returns to the Default state after a bus reset.
func (d *Device) reset() {
	if d.hooks.Reset != nil {
		d.hooks.Reset(true)
	}

	for _, r := range d.eps {
		r.Reset()
	}
	d.state = StateDefault
	d.address = 0
	d.pendingAddress = false
	d.ctrl.remaining = nil
	d.regs.SetDeviceAddress(0)

	ep0 := d.eps[0]
	ep0.Configure(hal.KindControl, 0)
	ep0.Enable(hal.DirOut)
	ep0.Enable(hal.DirIn)

	pkg.LogDebug(pkg.ComponentDevice, "bus reset")
	if d.hooks.Reset != nil {
		d.hooks.Reset(false)
	}
}

// startOfFrame offers one data endpoint per frame, round-robin, the chance to
// queue IN data while it idles. It reports whether InReady was called.
func (d *Device) startOfFrame() bool {
	if d.hooks.InReady == nil {
		return false
	}
	ep := d.sofEndpoint
	d.sofEndpoint++
	if d.sofEndpoint >= NumEndpoints {
		d.sofEndpoint = 1
	}

	r := d.eps[ep]
	if d.layout.In[ep].Configured() &&
		r.Address() == ep &&
		r.Status(hal.DirIn) == hal.StatusNAK {
		d.hooks.InReady(ep)
		return true
	}
	return false
}

// transferComplete handles a completed transaction on endpoint ep.
func (d *Device) transferComplete(ep uint8) {
	if ep == 0 {
		d.control()
		return
	}

	r := d.eps[ep%NumEndpoints]
	if r.Completed(hal.DirOut) {
		r.Acknowledge(hal.DirOut)
		if d.hooks.OutReady != nil {
			d.hooks.OutReady(ep)
		}
	}
	if r.Completed(hal.DirIn) {
		r.Acknowledge(hal.DirIn)
		if d.hooks.InReady != nil {
			d.hooks.InReady(ep)
		}
	}
}

// control runs the control transfer state machine of endpoint 0.
func (d *Device) control() {
	ep0 := d.eps[0]

	if ep0.Completed(hal.DirOut) {
		setup := ep0.IsSetup()
		ep0.Acknowledge(hal.DirOut)
		if setup {
			d.controlSetup()
		} else {
			d.controlOut()
		}
		return
	}

	if ep0.Completed(hal.DirIn) {
		ep0.Acknowledge(hal.DirIn)
		if d.pendingAddress {
			d.pendingAddress = false
			d.address = d.pending
			d.regs.SetDeviceAddress(d.address)
			d.state = StateAddress
			pkg.LogInfo(pkg.ComponentDevice, "address assigned", "address", d.address)
		}
		d.resumeControlIn()
	}
}

// controlSetup reads and answers a SETUP packet. Rejected requests stall
// both directions of endpoint 0 until the next SETUP.
func (d *Device) controlSetup() {
	d.ctrl.remaining = nil

	var err error
	if n := d.Receive(0, d.setupBuf[:]); n != hal.SetupPacketSize {
		err = pkg.ErrSetupPacketTooShort
	} else if err = hal.ParseSetupPacket(d.setupBuf[:], &d.setup); err == nil {
		err = d.handleSetup(&d.setup)
	}

	if err != nil {
		pkg.LogDebug(pkg.ComponentControl, "request rejected", "setup", &d.setup, "error", err)
		d.eps[0].SetStall(hal.DirIn)
		d.eps[0].SetStall(hal.DirOut)
		return
	}
	pkg.LogDebug(pkg.ComponentControl, "request accepted", "setup", &d.setup)

	if d.setup.IsHostToDevice() {
		d.ControlIn(nil, 0)
	}
}

// controlOut consumes a data or status stage packet on endpoint 0.
func (d *Device) controlOut() {
	n := d.Receive(0, d.outBuf[:])
	if n > 0 && d.hooks.ControlOut != nil {
		d.hooks.ControlOut(d, d.outBuf[:min(n, len(d.outBuf))])
	}
}
