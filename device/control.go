package device

import "github.com/ardnew/usbdfs/pkg"

// controlIn is the part of a control read still to be sent. A nil remaining
// slice means no transfer is in progress.
type controlIn struct {
	remaining []byte
}

// ControlIn answers a device-to-host control request with data, of which
// the host asked for requested bytes. The first packet is queued now; the
// rest follows one EP0Size packet per IN completion. data must stay valid
// until the transfer completes.
//
// Transfers shorter than requested whose length is a multiple of EP0Size end
// without a zero-length packet.
func (d *Device) ControlIn(data []byte, requested uint16) {
	total := min(int(requested), len(data))
	first := min(total, EP0Size)
	d.Transmit(0, data[:first])
	if total > EP0Size {
		d.ctrl.remaining = data[EP0Size:total]
	} else {
		d.ctrl.remaining = nil
	}
	pkg.LogDebug(pkg.ComponentControl, "control in", "total", total, "sent", first)
}

// resumeControlIn queues the next packet of a segmented control read. It
// returns false when there was nothing left to send.
func (d *Device) resumeControlIn() bool {
	if d.ctrl.remaining == nil {
		return false
	}
	n := min(len(d.ctrl.remaining), EP0Size)
	d.Transmit(0, d.ctrl.remaining[:n])
	if len(d.ctrl.remaining) > EP0Size {
		d.ctrl.remaining = d.ctrl.remaining[EP0Size:]
	} else {
		d.ctrl.remaining = nil
	}
	return true
}
