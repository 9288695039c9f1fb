package device

import (
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// Slot is one endpoint buffer in packet memory. The zero Slot means the
// direction has no buffer: offset 0 holds the buffer descriptor table, so no
// real buffer can start there.
type Slot struct {
	Offset uint16
	Size   uint16
}

// Configured reports whether the slot holds a buffer.
func (s Slot) Configured() bool { return s.Offset != 0 }

// End returns the offset just past the buffer.
func (s Slot) End() uint16 { return s.Offset + s.Size }

// store packs data into the slot as little-endian 16-bit words and returns
// the number of bytes written.
func (s Slot) store(pm hal.PacketMemory, data []byte) int {
	n := min(len(data), int(s.Size))
	for i := 0; i < n; i += 2 {
		w := uint16(data[i])
		if i+1 < n {
			w |= uint16(data[i+1]) << 8
		}
		pm.Store16(s.Offset+uint16(i), w)
	}
	return n
}

// load copies the first len(buf) bytes of the slot into buf.
func (s Slot) load(pm hal.PacketMemory, buf []byte) int {
	n := min(len(buf), int(s.Size))
	for i := 0; i < n; i += 2 {
		w := pm.Load16(s.Offset + uint16(i))
		buf[i] = byte(w)
		if i+1 < n {
			buf[i+1] = byte(w >> 8)
		}
	}
	return n
}

// Layout is the placement of every endpoint buffer in packet memory.
type Layout struct {
	In  [NumEndpoints]Slot
	Out [NumEndpoints]Slot
}

// Slot returns the buffer of endpoint ep in direction dir.
func (l *Layout) Slot(ep uint8, dir hal.Direction) Slot {
	if ep >= NumEndpoints {
		return Slot{}
	}
	if dir == hal.DirIn {
		return l.In[ep]
	}
	return l.Out[ep]
}

// End returns the offset just past the last buffer.
func (l *Layout) End() uint16 {
	end := uint16(hal.BufferTableSize)
	for n := range NumEndpoints {
		end = max(end, l.In[n].End(), l.Out[n].End())
	}
	return end
}

// Free returns the packet memory left unused.
func (l *Layout) Free() int {
	return hal.PacketMemorySize - int(l.End())
}

// allocate places the buffers of a validated configuration back to back
// after the buffer descriptor table, IN before OUT for each endpoint.
func allocate(cfg *Config) Layout {
	var l Layout
	next := uint16(hal.BufferTableSize)
	for n, ep := range cfg.Endpoints {
		if ep.InSize > 0 {
			l.In[n] = Slot{Offset: next, Size: ep.InSize}
			next += ep.InSize
		}
		if ep.OutSize > 0 {
			l.Out[n] = Slot{Offset: next, Size: ep.OutSize}
			next += ep.OutSize
		}
	}
	return l
}

// program writes the buffer descriptor table at offset 0.
func (l *Layout) program(pm hal.PacketMemory) {
	for n := range NumEndpoints {
		e := hal.Buffers(pm, 0, uint8(n))
		e.SetTx(l.In[n].Offset, 0)
		e.SetRx(l.Out[n].Offset, hal.RxCountField(l.Out[n].Size))
		pkg.LogDebug(pkg.ComponentMemory, "endpoint buffers",
			"endpoint", n,
			"in", l.In[n].Offset, "inSize", l.In[n].Size,
			"out", l.Out[n].Offset, "outSize", l.Out[n].Size)
	}
}
