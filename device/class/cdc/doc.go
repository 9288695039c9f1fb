// Package cdc implements a USB Communications Device Class Abstract Control
// Model function, a virtual serial port, on top of the device engine's hooks.
//
// The function owns two interfaces. The communications interface carries the
// SET/GET_LINE_CODING, SET_CONTROL_LINE_STATE and SEND_BREAK requests and an
// interrupt IN endpoint for SERIAL_STATE notifications. The data interface
// moves bytes over one bulk endpoint number used in both directions.
//
// Received packets are buffered until Read. While the receive buffer cannot
// hold another packet, the OUT endpoint is left answering NAK, so the host
// is throttled instead of losing data. Written bytes are buffered and sent a
// packet at a time as the host reads them; a transfer ending on a full
// packet is closed with a zero-length packet.
//
// # Usage
//
//	acm := cdc.NewACM(cdc.Config{Interface: 0, NotifyEP: 1, DataEP: 2})
//
//	var cfg device.Config
//	acm.Endpoints(&cfg)
//
//	header := device.ConfigurationDescriptor{
//		NumInterfaces:      2,
//		ConfigurationValue: 1,
//		Attributes:         device.ConfigAttrBusPowered,
//		MaxPower:           50,
//	}
//	desc := device.NewStaticDescriptors(&devDesc, header.Assemble(acm.Descriptors()...))
//
//	var hooks device.Hooks
//	acm.Install(&hooks)
//
//	dev, err := device.New(periph, cfg, desc, hooks)
//	acm.Attach(dev)
//	dev.Init()
//
//	for {
//		dev.Task()
//		n, _ := acm.Read(buf)
//		acm.Write(buf[:n])
//	}
package cdc
