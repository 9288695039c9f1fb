package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMIDIDescriptors(t *testing.T) {
	buf := make([]byte, 16)

	h := MIDIHeader{MSCVersion: 0x0100, TotalLength: 0x0041}
	require.Equal(t, MIDIHeaderSize, h.MarshalTo(buf))
	assert.Equal(t, []byte{7, DescriptorTypeCSInterface, MIDISubtypeHeader, 0x00, 0x01, 0x41, 0x00}, buf[:7])

	in := MIDIInJack{JackType: MIDIJackEmbedded, JackID: 1}
	require.Equal(t, MIDIInJackSize, in.MarshalTo(buf))
	assert.Equal(t, []byte{6, DescriptorTypeCSInterface, MIDISubtypeInJack, MIDIJackEmbedded, 1, 0}, buf[:6])

	out := MIDIOutJack{JackType: MIDIJackExternal, JackID: 3, SourceID: 1, SourcePin: 1}
	require.Equal(t, MIDIOutJackSize, out.MarshalTo(buf))
	assert.Equal(t, []byte{9, DescriptorTypeCSInterface, MIDISubtypeOutJack, MIDIJackExternal, 3, 1, 1, 1, 0}, buf[:9])

	ep := MIDIEndpoint{JackID: 1}
	require.Equal(t, MIDIEndpointSize, ep.MarshalTo(buf))
	assert.Equal(t, []byte{5, DescriptorTypeCSEndpoint, MIDISubtypeEndpoint, 1, 1}, buf[:5])

	assert.Zero(t, out.MarshalTo(buf[:8]))
}

func TestAudioDescriptors(t *testing.T) {
	buf := make([]byte, 16)

	h := AudioControlHeader{ADCVersion: 0x0100, TotalLength: 9, Interface: 1}
	require.Equal(t, AudioControlHeaderSize, h.MarshalTo(buf))
	assert.Equal(t, []byte{9, DescriptorTypeCSInterface, AudioSubtypeHeader, 0x00, 0x01, 9, 0, 1, 1}, buf[:9])

	ep := AudioEndpoint{EndpointDescriptor: EndpointDescriptor{
		EndpointAddress: 0x01, Attributes: EndpointAttrBulk, MaxPacketSize: 64,
	}}
	require.Equal(t, AudioEndpointSize, ep.MarshalTo(buf))
	assert.Equal(t, []byte{9, DescriptorTypeEndpoint, 0x01, EndpointAttrBulk, 64, 0, 0, 0, 0}, buf[:9])

	assert.Zero(t, ep.MarshalTo(buf[:7]))
}
