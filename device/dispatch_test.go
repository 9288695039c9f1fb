package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/device/hal/sim"
	"github.com/ardnew/usbdfs/pkg"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name  string
		hooks Hooks
		sof   bool
	}{
		{"without in hook", Hooks{}, false},
		{"with in hook", Hooks{InReady: func(uint8) {}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := newTestbed(t, tt.hooks)
			regs := tb.periph.Registers()

			assert.True(t, tb.periph.Clocked())
			assert.True(t, tb.periph.Connected())

			cntr := regs.CNTR.Get()
			assert.Zero(t, cntr&(hal.CtrlPDWN|hal.CtrlFRES))
			assert.Equal(t, hal.CtrlCTRM|hal.CtrlWKUPM|hal.CtrlSUSPM|hal.CtrlRESETM,
				cntr&(hal.CtrlCTRM|hal.CtrlWKUPM|hal.CtrlSUSPM|hal.CtrlRESETM))
			assert.Equal(t, tt.sof, cntr&hal.CtrlSOFM != 0)

			pm := tb.periph.PacketMemory()
			layout := tb.dev.Layout()
			for n := range uint8(NumEndpoints) {
				e := hal.Buffers(pm, 0, n)
				assert.Equal(t, layout.In[n].Offset, e.TxAddr())
				assert.Equal(t, layout.Out[n].Offset, e.RxAddr())
				assert.Equal(t, layout.Out[n].Size, hal.RxCapacity(e.RxField()))
			}

			// Nothing answers before the host resets the bus.
			_, hs := tb.periph.In(0, 0)
			assert.Equal(t, pkg.HandshakeNone, hs)
		})
	}
}

func TestBusReset(t *testing.T) {
	var calls []bool
	tb := configured(t, Hooks{Reset: func(before bool) { calls = append(calls, before) }})
	calls = nil

	tb.host.Reset()

	assert.Equal(t, []bool{true, false}, calls)
	assert.Equal(t, StateDefault, tb.dev.State())
	assert.Zero(t, tb.dev.Address())
	assert.Zero(t, tb.periph.Registers().DeviceAddress())
	assert.Equal(t, hal.StatusValid, tb.periph.EndpointStatus(0, hal.DirOut))
	assert.Equal(t, hal.StatusNAK, tb.periph.EndpointStatus(0, hal.DirIn))
	assert.Equal(t, hal.KindControl, tb.dev.Endpoint(0).Kind())
	for n := uint8(1); n < NumEndpoints; n++ {
		assert.Equal(t, hal.StatusDisabled, tb.periph.EndpointStatus(n, hal.DirIn))
		assert.Equal(t, hal.StatusDisabled, tb.periph.EndpointStatus(n, hal.DirOut))
	}
}

func TestSuspendResume(t *testing.T) {
	var events []string
	tb := attached(t, Hooks{
		Suspend: func() { events = append(events, "suspend") },
		Resume:  func() { events = append(events, "resume") },
	})
	regs := tb.periph.Registers()

	tb.host.Suspend()
	assert.True(t, regs.Suspended())
	tb.host.Resume()
	assert.False(t, regs.Suspended())
	assert.Equal(t, []string{"suspend", "resume"}, events)

	// Wakeup wins over a suspend raised at the same time, and clears it.
	events = nil
	tb.periph.Suspend()
	tb.periph.Wakeup()
	tb.dev.Task()
	tb.dev.Task()
	assert.Equal(t, []string{"resume"}, events)
	assert.False(t, tb.periph.Pending())
}

func TestResetTakesPriorityOverTransfer(t *testing.T) {
	tb := addressed(t, Hooks{})

	var s SetupPacket
	hal.GetConfigurationSetup(&s)
	var raw [hal.SetupPacketSize]byte
	s.MarshalTo(raw[:])
	require.Equal(t, pkg.HandshakeACK, tb.periph.Setup(5, 0, raw[:]))

	// The reset clears the endpoint registers, and with them the transfer.
	tb.periph.BusReset()
	tb.dev.Task()
	assert.Equal(t, StateDefault, tb.dev.State())
	assert.False(t, tb.periph.Pending())
}

func TestStartOfFrameRoundRobin(t *testing.T) {
	var ready []uint8
	tb := configured(t, Hooks{InReady: func(ep uint8) { ready = append(ready, ep) }})
	ready = nil

	for range 2 * (NumEndpoints - 1) {
		tb.host.Frame()
	}
	assert.Equal(t, []uint8{1, 2, 1, 2}, ready)

	// A queued endpoint is busy, not idle.
	ready = nil
	require.True(t, tb.dev.Transmit(1, []byte{1}))
	for range NumEndpoints - 1 {
		tb.host.Frame()
	}
	assert.Equal(t, []uint8{2}, ready)
}

func TestStartOfFrameBeforeConfiguration(t *testing.T) {
	var ready []uint8
	tb := addressed(t, Hooks{InReady: func(ep uint8) { ready = append(ready, ep) }})

	for range NumEndpoints {
		tb.host.Frame()
	}
	assert.Empty(t, ready)
}

func TestStartOfFrameWithoutHook(t *testing.T) {
	tb := configured(t, Hooks{})
	tb.host.Frame()
	assert.False(t, tb.periph.Pending())
	assert.Equal(t, uint8(1), tb.dev.sofEndpoint)
}

func TestDataEndpoints(t *testing.T) {
	var (
		outReady []uint8
		inReady  []uint8
		received []byte
		dev      *Device
	)
	tb := configured(t, Hooks{
		OutReady: func(ep uint8) {
			outReady = append(outReady, ep)
			buf := make([]byte, MaxPacketSize)
			n := dev.Receive(ep, buf)
			received = append(received, buf[:n]...)
		},
	})
	dev = tb.dev
	ctx := t.Context()

	require.NoError(t, tb.host.Out(ctx, 2, []byte("hello")))
	require.NoError(t, tb.host.Out(ctx, 2, []byte(", world")))
	assert.Equal(t, []uint8{2, 2}, outReady)
	assert.Equal(t, "hello, world", string(received))
	assert.Equal(t, hal.StatusValid, tb.periph.EndpointStatus(2, hal.DirOut))

	_, err := tb.host.In(ctx, 1)
	require.Error(t, err, "nothing queued")
	assert.Empty(t, inReady)

	require.True(t, tb.dev.Transmit(2, []byte("reply")))
	data, err := tb.host.In(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "reply", string(data))
}

func TestInReadyAfterTransmit(t *testing.T) {
	var ready []uint8
	tb := configured(t, Hooks{InReady: func(ep uint8) { ready = append(ready, ep) }})
	ready = nil

	require.True(t, tb.dev.Transmit(1, []byte{0xA5, 0x5A}))
	data, err := tb.host.In(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5, 0x5A}, data)
	assert.Equal(t, []uint8{1}, ready)
	assert.True(t, tb.dev.Endpoint(1).DataToggle(hal.DirIn))
}

func TestTaskIdle(t *testing.T) {
	p := sim.New()
	dev, err := New(p, testConfig(), testDescriptors(), Hooks{})
	require.NoError(t, err)
	dev.Init()
	dev.Task()
	assert.Equal(t, StateDefault, dev.State())
}
