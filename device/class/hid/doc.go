// Package hid implements a USB Human Interface Device function on top of the
// device engine's hooks.
//
// A HID function owns one interface with an interrupt IN endpoint for input
// reports and an optional interrupt OUT endpoint for output reports. It
// serves the HID and report descriptors, answers GET/SET_REPORT,
// GET/SET_IDLE and GET/SET_PROTOCOL, and queues input reports for the IN
// endpoint.
//
// # Usage
//
//	kbd := hid.New(hid.Config{
//		InEP:     1,
//		Subclass: hid.SubclassBoot,
//		Protocol: hid.ProtocolKeyboard,
//	}, hid.KeyboardReportDescriptor)
//
//	var cfg device.Config
//	kbd.Endpoints(&cfg)
//
//	header := device.ConfigurationDescriptor{
//		NumInterfaces:      1,
//		ConfigurationValue: 1,
//		Attributes:         device.ConfigAttrBusPowered,
//		MaxPower:           50,
//	}
//	desc := device.NewStaticDescriptors(&devDesc, header.Assemble(kbd.Descriptors()...))
//
//	var hooks device.Hooks
//	kbd.Install(&hooks)
//	dev, err := device.New(periph, cfg, desc, hooks)
//	kbd.Attach(dev)
//
//	// Later, once configured:
//	kbd.SendKeyboardReport(&hid.KeyboardReport{Keys: [6]uint8{hid.KeyA}})
package hid
