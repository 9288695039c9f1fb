// Package sim models the USB full-speed device peripheral in software.
//
// A [Peripheral] implements hal.Peripheral with the same register write
// semantics as the silicon: endpoint CTR flags are cleared by writing 0,
// STAT and DTOG fields toggle when written 1, and ISTR event bits are cleared
// by writing 0. The packet memory is a plain 1024-byte array.
//
// The bus side is driven one transaction at a time. [Peripheral.Setup],
// [Peripheral.Out] and [Peripheral.In] deliver tokens to an endpoint and
// report the handshake the device gives; [Peripheral.BusReset],
// [Peripheral.Suspend], [Peripheral.Wakeup] and [Peripheral.StartOfFrame]
// raise the corresponding events.
//
// A [Host] builds complete control and data transfers on top of these
// transactions:
//
//	p := sim.New()
//	dev, _ := device.New(p, cfg, descriptors, hooks)
//	dev.Init()
//	host := sim.NewHost(p, sim.WithStep(dev.Task))
//	enum, err := host.Enumerate(ctx, 7)
package sim
