package cdc

import (
	"encoding/binary"

	"github.com/ardnew/usbdfs/device"
)

// Class codes.
const (
	ClassComm = device.ClassCDC
	ClassData = device.ClassCDCData

	SubclassACM = 0x02
	ProtocolAT  = 0x01 // V.250 AT commands
)

// Descriptor types used by the function.
const (
	DescriptorTypeInterfaceAssociation = 0x0B
	DescriptorTypeCSInterface          = device.DescriptorTypeCSInterface
)

// Functional descriptor subtypes.
const (
	SubtypeHeader         = 0x00
	SubtypeCallManagement = 0x01
	SubtypeACM            = 0x02
	SubtypeUnion          = 0x06
)

// Class request codes handled on the communications interface.
const (
	RequestSetLineCoding       = 0x20
	RequestGetLineCoding       = 0x21
	RequestSetControlLineState = 0x22
	RequestSendBreak           = 0x23
)

// NotificationSerialState reports UART state bits on the notification
// endpoint.
const NotificationSerialState = 0x20

// Control line state bits, the wValue of SET_CONTROL_LINE_STATE.
const (
	ControlLineDTR = 1 << 0
	ControlLineRTS = 1 << 1
)

// Serial state bits carried by NotificationSerialState.
const (
	SerialStateDCD     = 1 << 0
	SerialStateDSR     = 1 << 1
	SerialStateBreak   = 1 << 2
	SerialStateRing    = 1 << 3
	SerialStateFraming = 1 << 4
	SerialStateParity  = 1 << 5
	SerialStateOverrun = 1 << 6
)

// ACM capability bits of the ACM functional descriptor.
const (
	ACMCapCommFeature = 1 << 0
	ACMCapLineCoding  = 1 << 1 // SET/GET_LINE_CODING, SET_CONTROL_LINE_STATE
	ACMCapSendBreak   = 1 << 2
)

// Stop bit and parity encodings of LineCoding.
const (
	StopBits1   = 0
	StopBits1_5 = 1
	StopBits2   = 2

	ParityNone  = 0
	ParityOdd   = 1
	ParityEven  = 2
	ParityMark  = 3
	ParitySpace = 4
)

// LineCodingSize is the size of the line coding structure on the wire.
const LineCodingSize = 7

// SerialStateSize is the size of a SERIAL_STATE notification.
const SerialStateSize = 10

// LineCoding is the UART framing the host asks for.
type LineCoding struct {
	Rate     uint32 // dwDTERate in bits per second
	StopBits uint8  // bCharFormat
	Parity   uint8  // bParityType
	DataBits uint8  // 5, 6, 7, 8 or 16
}

// DefaultLineCoding is 115200 baud, 8 data bits, no parity, 1 stop bit.
var DefaultLineCoding = LineCoding{Rate: 115200, StopBits: StopBits1, Parity: ParityNone, DataBits: 8}

// MarshalTo encodes the line coding into buf and returns LineCodingSize, or 0
// if buf is too small.
func (lc *LineCoding) MarshalTo(buf []byte) int {
	if len(buf) < LineCodingSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], lc.Rate)
	buf[4] = lc.StopBits
	buf[5] = lc.Parity
	buf[6] = lc.DataBits
	return LineCodingSize
}

// ParseLineCoding decodes a line coding. It reports false when data is too
// short.
func ParseLineCoding(data []byte, out *LineCoding) bool {
	if len(data) < LineCodingSize {
		return false
	}
	out.Rate = binary.LittleEndian.Uint32(data[0:4])
	out.StopBits = data[4]
	out.Parity = data[5]
	out.DataBits = data[6]
	return true
}

// functionalDescriptors returns the header, call management, ACM and union
// descriptors that follow the communications interface descriptor.
func functionalDescriptors(comm, data uint8) []byte {
	return []byte{
		5, DescriptorTypeCSInterface, SubtypeHeader, 0x10, 0x01, // CDC 1.10
		5, DescriptorTypeCSInterface, SubtypeCallManagement, 0, data,
		4, DescriptorTypeCSInterface, SubtypeACM, ACMCapLineCoding | ACMCapSendBreak,
		5, DescriptorTypeCSInterface, SubtypeUnion, comm, data,
	}
}

// associationDescriptor groups the two interfaces into one function for
// composite devices.
func associationDescriptor(first uint8) []byte {
	return []byte{8, DescriptorTypeInterfaceAssociation, first, 2, ClassComm, SubclassACM, ProtocolAT, 0}
}
