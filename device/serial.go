package device

import "github.com/ardnew/usbdfs/device/hal"

// serialDescriptorSize is the size of the serial number string descriptor:
// two header bytes and two hex digits per unique ID byte, in UTF-16.
const serialDescriptorSize = 2 + 2*2*hal.UniqueIDSize

const hexDigits = "0123456789ABCDEF"

// SerialNumberDescriptor writes the string descriptor of the chip's unique ID
// as upper-case hex digits into dst, which must hold 50 bytes, and returns
// the descriptor.
func SerialNumberDescriptor(dst []byte, uid [hal.UniqueIDSize]byte) []byte {
	if len(dst) < serialDescriptorSize {
		return nil
	}
	dst[0] = serialDescriptorSize
	dst[1] = DescriptorTypeString
	i := 2
	for _, b := range uid {
		dst[i], dst[i+1] = hexDigits[b>>4], 0
		dst[i+2], dst[i+3] = hexDigits[b&0x0F], 0
		i += 4
	}
	return dst[:serialDescriptorSize]
}

// SerialNumber returns a string descriptor holding the chip's unique ID in
// hex, suitable for the device descriptor's iSerialNumber. It is built on the
// first call and served from the device afterwards.
func (d *Device) SerialNumber() []byte {
	if d.serial[0] == 0 {
		SerialNumberDescriptor(d.serial[:], d.periph.UniqueID())
	}
	return d.serial[:]
}
