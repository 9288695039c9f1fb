package device

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/ardnew/usbdfs/pkg"
)

// Descriptor types (USB 2.0 Table 9-5, plus the class-specific types used by
// the HID and audio classes).
const (
	DescriptorTypeDevice          = 0x01
	DescriptorTypeConfiguration   = 0x02
	DescriptorTypeString          = 0x03
	DescriptorTypeInterface       = 0x04
	DescriptorTypeEndpoint        = 0x05
	DescriptorTypeDeviceQualifier = 0x06
	DescriptorTypeOtherSpeed      = 0x07
	DescriptorTypeHID             = 0x21
	DescriptorTypeHIDReport       = 0x22
	DescriptorTypeCSInterface     = 0x24 // Class-specific interface
	DescriptorTypeCSEndpoint      = 0x25 // Class-specific endpoint
)

// Class codes.
const (
	ClassPerInterface = 0x00
	ClassAudio        = 0x01
	ClassCDC          = 0x02
	ClassHID          = 0x03
	ClassMassStorage  = 0x08
	ClassCDCData      = 0x0A
	ClassMisc         = 0xEF
	ClassAppSpecific  = 0xFE
	ClassVendor       = 0xFF
)

// Endpoint descriptor bmAttributes transfer types.
const (
	EndpointAttrControl     = 0x00
	EndpointAttrIsochronous = 0x01
	EndpointAttrBulk        = 0x02
	EndpointAttrInterrupt   = 0x03
)

// Descriptor sizes in bytes.
const (
	DeviceDescriptorSize        = 18
	ConfigurationDescriptorSize = 9
	InterfaceDescriptorSize     = 9
	EndpointDescriptorSize      = 7
)

// Configuration attribute bits.
const (
	ConfigAttrBusPowered   = 0x80 // Reserved, always set
	ConfigAttrSelfPowered  = 0x40
	ConfigAttrRemoteWakeup = 0x20
)

// LangIDUSEnglish is the language ID for US English.
const LangIDUSEnglish = 0x0409

// DescriptorLength returns the number of bytes of data that make up the
// descriptor it starts with: wTotalLength for a configuration descriptor and
// bLength otherwise. The result never exceeds len(data).
func DescriptorLength(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, pkg.ErrDescriptorTooShort
	}
	n := int(data[0])
	if data[1] == DescriptorTypeConfiguration {
		if len(data) < 4 {
			return 0, pkg.ErrDescriptorTooShort
		}
		n = int(binary.LittleEndian.Uint16(data[2:4]))
	}
	if n < 2 {
		return 0, pkg.ErrDescriptorTooShort
	}
	return min(n, len(data)), nil
}

// DeviceDescriptor is the standard device descriptor.
type DeviceDescriptor struct {
	USBVersion        uint16 // bcdUSB
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16 // bcdDevice
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// MarshalTo writes the descriptor to buf and returns 18, or 0 if buf is too
// small.
func (d *DeviceDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < DeviceDescriptorSize {
		return 0
	}
	buf[0] = DeviceDescriptorSize
	buf[1] = DescriptorTypeDevice
	binary.LittleEndian.PutUint16(buf[2:4], d.USBVersion)
	buf[4] = d.DeviceClass
	buf[5] = d.DeviceSubClass
	buf[6] = d.DeviceProtocol
	buf[7] = d.MaxPacketSize0
	binary.LittleEndian.PutUint16(buf[8:10], d.VendorID)
	binary.LittleEndian.PutUint16(buf[10:12], d.ProductID)
	binary.LittleEndian.PutUint16(buf[12:14], d.DeviceVersion)
	buf[14] = d.ManufacturerIndex
	buf[15] = d.ProductIndex
	buf[16] = d.SerialNumberIndex
	buf[17] = d.NumConfigurations
	return DeviceDescriptorSize
}

// ParseDeviceDescriptor decodes a device descriptor into out.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) error {
	if len(data) < DeviceDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeDevice {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.USBVersion = binary.LittleEndian.Uint16(data[2:4])
	out.DeviceClass = data[4]
	out.DeviceSubClass = data[5]
	out.DeviceProtocol = data[6]
	out.MaxPacketSize0 = data[7]
	out.VendorID = binary.LittleEndian.Uint16(data[8:10])
	out.ProductID = binary.LittleEndian.Uint16(data[10:12])
	out.DeviceVersion = binary.LittleEndian.Uint16(data[12:14])
	out.ManufacturerIndex = data[14]
	out.ProductIndex = data[15]
	out.SerialNumberIndex = data[16]
	out.NumConfigurations = data[17]
	return nil
}

// ConfigurationDescriptor is the 9-byte header of a configuration.
type ConfigurationDescriptor struct {
	TotalLength        uint16 // Header plus everything that follows it
	NumInterfaces      uint8
	ConfigurationValue uint8 // Argument of SET_CONFIGURATION
	ConfigurationIndex uint8 // String index
	Attributes         uint8
	MaxPower           uint8 // 2 mA units
}

// MarshalTo writes the descriptor header to buf and returns 9, or 0 if buf
// is too small.
func (c *ConfigurationDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < ConfigurationDescriptorSize {
		return 0
	}
	buf[0] = ConfigurationDescriptorSize
	buf[1] = DescriptorTypeConfiguration
	binary.LittleEndian.PutUint16(buf[2:4], c.TotalLength)
	buf[4] = c.NumInterfaces
	buf[5] = c.ConfigurationValue
	buf[6] = c.ConfigurationIndex
	buf[7] = c.Attributes
	buf[8] = c.MaxPower
	return ConfigurationDescriptorSize
}

// Assemble returns the complete configuration: the header followed by parts,
// with TotalLength set to the combined size.
func (c *ConfigurationDescriptor) Assemble(parts ...[]byte) []byte {
	total := ConfigurationDescriptorSize
	for _, p := range parts {
		total += len(p)
	}
	c.TotalLength = uint16(total)

	buf := make([]byte, ConfigurationDescriptorSize, total)
	c.MarshalTo(buf)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

// ParseConfigurationDescriptor decodes a configuration descriptor header into
// out.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) error {
	if len(data) < ConfigurationDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeConfiguration {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.TotalLength = binary.LittleEndian.Uint16(data[2:4])
	out.NumInterfaces = data[4]
	out.ConfigurationValue = data[5]
	out.ConfigurationIndex = data[6]
	out.Attributes = data[7]
	out.MaxPower = data[8]
	return nil
}

// InterfaceDescriptor is the standard interface descriptor.
type InterfaceDescriptor struct {
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8 // Endpoint 0 excluded
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceIndex    uint8 // String index
}

// MarshalTo writes the descriptor to buf and returns 9, or 0 if buf is too
// small.
func (i *InterfaceDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < InterfaceDescriptorSize {
		return 0
	}
	buf[0] = InterfaceDescriptorSize
	buf[1] = DescriptorTypeInterface
	buf[2] = i.InterfaceNumber
	buf[3] = i.AlternateSetting
	buf[4] = i.NumEndpoints
	buf[5] = i.InterfaceClass
	buf[6] = i.InterfaceSubClass
	buf[7] = i.InterfaceProtocol
	buf[8] = i.InterfaceIndex
	return InterfaceDescriptorSize
}

// Bytes returns the marshaled descriptor.
func (i *InterfaceDescriptor) Bytes() []byte {
	buf := make([]byte, InterfaceDescriptorSize)
	i.MarshalTo(buf)
	return buf
}

// ParseInterfaceDescriptor decodes an interface descriptor into out.
func ParseInterfaceDescriptor(data []byte, out *InterfaceDescriptor) error {
	if len(data) < InterfaceDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeInterface {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.InterfaceNumber = data[2]
	out.AlternateSetting = data[3]
	out.NumEndpoints = data[4]
	out.InterfaceClass = data[5]
	out.InterfaceSubClass = data[6]
	out.InterfaceProtocol = data[7]
	out.InterfaceIndex = data[8]
	return nil
}

// EndpointDescriptor is the standard endpoint descriptor.
type EndpointDescriptor struct {
	EndpointAddress uint8 // Number, with bit 7 set for IN
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8 // Polling interval in frames
}

// MarshalTo writes the descriptor to buf and returns 7, or 0 if buf is too
// small.
func (e *EndpointDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < EndpointDescriptorSize {
		return 0
	}
	buf[0] = EndpointDescriptorSize
	buf[1] = DescriptorTypeEndpoint
	buf[2] = e.EndpointAddress
	buf[3] = e.Attributes
	binary.LittleEndian.PutUint16(buf[4:6], e.MaxPacketSize)
	buf[6] = e.Interval
	return EndpointDescriptorSize
}

// Bytes returns the marshaled descriptor.
func (e *EndpointDescriptor) Bytes() []byte {
	buf := make([]byte, EndpointDescriptorSize)
	e.MarshalTo(buf)
	return buf
}

// ParseEndpointDescriptor decodes an endpoint descriptor into out.
func ParseEndpointDescriptor(data []byte, out *EndpointDescriptor) error {
	if len(data) < EndpointDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeEndpoint {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.EndpointAddress = data[2]
	out.Attributes = data[3]
	out.MaxPacketSize = binary.LittleEndian.Uint16(data[4:6])
	out.Interval = data[6]
	return nil
}

// FindInterface returns the first interface descriptor with number n in a
// complete configuration descriptor, or nil.
func FindInterface(config []byte, n uint8) []byte {
	for len(config) >= 2 {
		size := int(config[0])
		if size < 2 || size > len(config) {
			return nil
		}
		if config[1] == DescriptorTypeInterface &&
			size >= InterfaceDescriptorSize &&
			config[2] == n {
			return config[:size]
		}
		config = config[size:]
	}
	return nil
}

// StringDescriptorTo writes s as a UTF-16LE string descriptor to buf and
// returns its length, or 0 if buf is too small. Strings longer than a
// descriptor can carry are truncated.
func StringDescriptorTo(buf []byte, s string) int {
	units := utf16.Encode([]rune(s))
	if len(units) > 126 {
		units = units[:126]
	}
	length := 2 + 2*len(units)
	if len(buf) < length {
		return 0
	}
	buf[0] = uint8(length)
	buf[1] = DescriptorTypeString
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2+2*i:], u)
	}
	return length
}

// StringDescriptor returns s as a string descriptor.
func StringDescriptor(s string) []byte {
	buf := make([]byte, 2+2*min(len(utf16.Encode([]rune(s))), 126))
	return buf[:StringDescriptorTo(buf, s)]
}

// LanguageDescriptor returns string descriptor 0 listing the supported
// languages.
func LanguageDescriptor(langIDs ...uint16) []byte {
	buf := make([]byte, 2+2*len(langIDs))
	buf[0] = uint8(len(buf))
	buf[1] = DescriptorTypeString
	for i, id := range langIDs {
		binary.LittleEndian.PutUint16(buf[2+2*i:], id)
	}
	return buf
}

// StaticDescriptors serves descriptors marshaled ahead of time. Strings are
// indexed from 1; index 0 answers with Languages.
type StaticDescriptors struct {
	Device        []byte
	Configuration []byte
	Languages     []uint16
	Strings       [][]byte

	langs []byte
}

// NewStaticDescriptors marshals device and the given strings. config must be a
// complete configuration descriptor, as returned by Assemble.
func NewStaticDescriptors(device *DeviceDescriptor, config []byte, strs ...string) *StaticDescriptors {
	s := &StaticDescriptors{
		Device:        make([]byte, DeviceDescriptorSize),
		Configuration: config,
		Languages:     []uint16{LangIDUSEnglish},
	}
	device.MarshalTo(s.Device)
	for _, str := range strs {
		s.Strings = append(s.Strings, StringDescriptor(str))
	}
	return s
}

// DeviceDescriptor implements Descriptors.
func (s *StaticDescriptors) DeviceDescriptor() []byte { return s.Device }

// ConfigurationDescriptor implements Descriptors.
func (s *StaticDescriptors) ConfigurationDescriptor() []byte { return s.Configuration }

// InterfaceDescriptor implements Descriptors.
func (s *StaticDescriptors) InterfaceDescriptor(n uint16) []byte {
	if n > 0xFF {
		return nil
	}
	return FindInterface(s.Configuration, uint8(n))
}

// StringDescriptor implements Descriptors. Only the listed languages are
// answered.
func (s *StaticDescriptors) StringDescriptor(lang uint16, index uint8) []byte {
	if index == 0 {
		if s.langs == nil {
			s.langs = LanguageDescriptor(s.Languages...)
		}
		return s.langs
	}
	found := false
	for _, id := range s.Languages {
		found = found || id == lang
	}
	if !found || int(index) > len(s.Strings) {
		return nil
	}
	return s.Strings[index-1]
}

// SetString replaces or adds string descriptor index, such as the serial
// number returned by Device.SerialNumber.
func (s *StaticDescriptors) SetString(index uint8, desc []byte) {
	if index == 0 {
		return
	}
	for len(s.Strings) < int(index) {
		s.Strings = append(s.Strings, nil)
	}
	s.Strings[index-1] = desc
}

var _ Descriptors = (*StaticDescriptors)(nil)
