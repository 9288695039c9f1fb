package device

import (
	"github.com/ardnew/usbdfs/device/hal"
)

// Transmit queues data for the next IN token on endpoint ep. Data longer than
// the endpoint's IN buffer is truncated. It returns false, touching nothing,
// when the endpoint does not exist or has no IN buffer.
//
// A packet still waiting for the host is overwritten; wait for InReady
// before queueing the next one.
func (d *Device) Transmit(ep uint8, data []byte) bool {
	if ep >= NumEndpoints {
		return false
	}
	slot := d.layout.In[ep]
	if !slot.Configured() {
		return false
	}
	n := slot.store(d.pma, data)
	hal.Buffers(d.pma, 0, ep).SetTxCount(uint16(n))
	d.eps[ep].SetStatus(hal.DirIn, hal.StatusValid)
	return true
}

// Receive copies the last packet received on OUT endpoint ep into buf and
// re-arms the endpoint. It returns the number of bytes the host sent, which
// exceeds len(buf) when the packet was truncated, or 0 when the endpoint does
// not exist or has no OUT buffer.
func (d *Device) Receive(ep uint8, buf []byte) int {
	if ep >= NumEndpoints {
		return 0
	}
	slot := d.layout.Out[ep]
	if !slot.Configured() {
		return 0
	}
	count := hal.Buffers(d.pma, 0, ep).RxCount()
	slot.load(d.pma, buf[:min(int(count), len(buf))])
	d.eps[ep].SetStatus(hal.DirOut, hal.StatusValid)
	return int(count)
}
