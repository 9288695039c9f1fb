package device

import "encoding/binary"

// Audio class subclasses and descriptor subtypes used by USB MIDI devices.
const (
	AudioSubClassControl   = 0x01
	AudioSubClassStreaming = 0x02
	AudioSubClassMIDI      = 0x03

	AudioSubtypeHeader = 0x01

	MIDISubtypeHeader   = 0x01
	MIDISubtypeInJack   = 0x02
	MIDISubtypeOutJack  = 0x03
	MIDISubtypeElement  = 0x04
	MIDISubtypeEndpoint = 0x01 // MS_GENERAL, on a class-specific endpoint

	MIDIJackEmbedded = 0x01
	MIDIJackExternal = 0x02
)

// Class-specific descriptor sizes.
const (
	AudioControlHeaderSize = 9
	AudioEndpointSize      = 9
	MIDIHeaderSize         = 7
	MIDIInJackSize         = 6
	MIDIOutJackSize        = 9
	MIDIEndpointSize       = 5
)

// AudioControlHeader is the class-specific AudioControl interface header for
// a function with a single streaming interface.
type AudioControlHeader struct {
	ADCVersion  uint16 // bcdADC
	TotalLength uint16 // This header plus the units and terminals after it
	Interface   uint8  // baInterfaceNr of the one streaming interface
}

// MarshalTo writes the descriptor to buf and returns 9, or 0 if buf is too
// small.
func (h *AudioControlHeader) MarshalTo(buf []byte) int {
	if len(buf) < AudioControlHeaderSize {
		return 0
	}
	buf[0] = AudioControlHeaderSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = AudioSubtypeHeader
	binary.LittleEndian.PutUint16(buf[3:5], h.ADCVersion)
	binary.LittleEndian.PutUint16(buf[5:7], h.TotalLength)
	buf[7] = 1
	buf[8] = h.Interface
	return AudioControlHeaderSize
}

// AudioEndpoint is the standard endpoint descriptor extended with the two
// audio class fields.
type AudioEndpoint struct {
	EndpointDescriptor
	Refresh     uint8
	SynchAddress uint8
}

// MarshalTo writes the descriptor to buf and returns 9, or 0 if buf is too
// small.
func (e *AudioEndpoint) MarshalTo(buf []byte) int {
	if len(buf) < AudioEndpointSize {
		return 0
	}
	e.EndpointDescriptor.MarshalTo(buf)
	buf[0] = AudioEndpointSize
	buf[7] = e.Refresh
	buf[8] = e.SynchAddress
	return AudioEndpointSize
}

// MIDIHeader is the class-specific MIDIStreaming interface header.
type MIDIHeader struct {
	MSCVersion  uint16 // bcdMSC
	TotalLength uint16 // This header plus the jacks and elements after it
}

// MarshalTo writes the descriptor to buf and returns 7, or 0 if buf is too
// small.
func (h *MIDIHeader) MarshalTo(buf []byte) int {
	if len(buf) < MIDIHeaderSize {
		return 0
	}
	buf[0] = MIDIHeaderSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = MIDISubtypeHeader
	binary.LittleEndian.PutUint16(buf[3:5], h.MSCVersion)
	binary.LittleEndian.PutUint16(buf[5:7], h.TotalLength)
	return MIDIHeaderSize
}

// MIDIInJack describes a MIDI IN jack.
type MIDIInJack struct {
	JackType uint8 // MIDIJackEmbedded or MIDIJackExternal
	JackID   uint8
	Index    uint8 // String index
}

// MarshalTo writes the descriptor to buf and returns 6, or 0 if buf is too
// small.
func (j *MIDIInJack) MarshalTo(buf []byte) int {
	if len(buf) < MIDIInJackSize {
		return 0
	}
	buf[0] = MIDIInJackSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = MIDISubtypeInJack
	buf[3] = j.JackType
	buf[4] = j.JackID
	buf[5] = j.Index
	return MIDIInJackSize
}

// MIDIOutJack describes a MIDI OUT jack with a single input pin.
type MIDIOutJack struct {
	JackType  uint8
	JackID    uint8
	SourceID  uint8 // Jack or element feeding the pin
	SourcePin uint8
	Index     uint8
}

// MarshalTo writes the descriptor to buf and returns 9, or 0 if buf is too
// small.
func (j *MIDIOutJack) MarshalTo(buf []byte) int {
	if len(buf) < MIDIOutJackSize {
		return 0
	}
	buf[0] = MIDIOutJackSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = MIDISubtypeOutJack
	buf[3] = j.JackType
	buf[4] = j.JackID
	buf[5] = 1
	buf[6] = j.SourceID
	buf[7] = j.SourcePin
	buf[8] = j.Index
	return MIDIOutJackSize
}

// MIDIEndpoint is the class-specific endpoint descriptor associating one
// embedded jack with a MIDIStreaming endpoint.
type MIDIEndpoint struct {
	JackID uint8
}

// MarshalTo writes the descriptor to buf and returns 5, or 0 if buf is too
// small.
func (e *MIDIEndpoint) MarshalTo(buf []byte) int {
	if len(buf) < MIDIEndpointSize {
		return 0
	}
	buf[0] = MIDIEndpointSize
	buf[1] = DescriptorTypeCSEndpoint
	buf[2] = MIDISubtypeEndpoint
	buf[3] = 1
	buf[4] = e.JackID
	return MIDIEndpointSize
}
