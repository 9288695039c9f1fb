// Package device implements a USB full-speed device engine for the USB
// peripheral found on STM32 F0, L0, L4 and G4 parts.
//
// The engine owns endpoint 0: it answers the standard requests that bring a
// device from the Default state through Address to Configured, serves the
// descriptors supplied through [Descriptors], and hands everything else to
// the optional callbacks in [Hooks]. Data endpoints 1 to 7 are moved by the
// firmware with [Device.Transmit] and [Device.Receive].
//
// Hardware access goes through [hal.Peripheral]. Firmware binds it to the
// memory-mapped registers; tests and the usbdfs command use the simulated
// peripheral in package sim.
//
// # Packet memory
//
// Endpoint buffers are placed once, when the device is created, from the
// sizes in [Config]. The buffer descriptor table takes the first 64 bytes
// and endpoint 0 takes 64 bytes per direction, which leaves
// [DataBufferBudget] bytes for the data endpoints:
//
//	cfg := device.Config{}
//	cfg.Endpoints[1] = device.EndpointConfig{
//		Type:   device.EndpointTypeInterrupt,
//		InSize: 8,
//	}
//	dev, err := device.New(periph, cfg, descriptors, device.Hooks{})
//
// # Event loop
//
// [Device.Init] connects the device. [Device.Task] then services one event
// per call and is meant to be called from the USB interrupt handler or a
// polling loop:
//
//	dev.Init()
//	for {
//		dev.Task()
//	}
//
// No call blocks or allocates once the device is created, and no part of the
// engine is safe for concurrent use.
package device
