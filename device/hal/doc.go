// Package hal describes the USB full-speed device peripheral found on
// STM32F0, STM32L0 and related parts, at the level of registers and packet
// memory.
//
// The device engine never touches memory-mapped I/O directly. It works on:
//
//   - [Register16], a single 16-bit register. TinyGo's
//     runtime/volatile.Register16 satisfies it on hardware; the sim package
//     provides a software model with the same write semantics.
//   - [PacketMemory], the 1024-byte area shared with the peripheral, accessed
//     in 16-bit words.
//   - [Peripheral], which bundles the register file, packet memory, clock
//     enable and the factory unique ID.
//
// # Endpoint registers
//
// Each EPnR register mixes bits that are cleared by writing 0 (CTR_RX,
// CTR_TX), bits that toggle when written 1 (DTOG_*, STAT_*) and plain
// read/write fields. [EPR] hides this behind the [EndpointRegister]
// operations the engine needs:
//
//	ep := regs.Endpoint(1)
//	ep.Configure(hal.KindBulk, 1)
//	ep.Enable(hal.DirOut)  // VALID, DATA0
//	ep.Enable(hal.DirIn)   // NAK, DATA0
//
// # Buffer descriptor table
//
// The first 64 bytes of packet memory hold one [BufferEntry] per endpoint.
// Receive capacities are encoded with [RxCountField]: buffers up to 62 bytes
// use 2-byte blocks, larger buffers use 32-byte blocks.
//
// # Setup packets
//
// [SetupPacket] decodes the 8-byte request that starts every control
// transfer. The Get/Set builders construct standard requests for the
// simulated host and for tests.
package hal
