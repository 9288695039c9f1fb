package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/usbdfs/device"
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/device/hal/sim"
	"github.com/ardnew/usbdfs/internal/profile"
	"github.com/ardnew/usbdfs/internal/usbid"
	"github.com/ardnew/usbdfs/pkg"
)

// maxEvents bounds the events serviced per interrupt so a stuck event
// cannot starve the host.
const maxEvents = 8

// EnumerateCmd runs the engine on the simulated peripheral and enumerates it
// with the simulated host, as a USB host controller would after plug-in.
type EnumerateCmd struct {
	Profile string        `arg:"" help:"Device profile (YAML, TOML or JSON)" type:"existingfile"`
	Address uint8         `help:"Address assigned with SET_ADDRESS" default:"5" env:"USBDFS_ADDRESS"`
	Timeout time.Duration `help:"Give up after this long" default:"5s" env:"USBDFS_TIMEOUT"`
	Retries int           `help:"NAK retries per transaction" default:"64" env:"USBDFS_RETRIES"`
	UID     string        `help:"Chip unique ID as 24 hex digits" default:"0123456789abcdef01234567" env:"USBDFS_UID"`
	USBIDs  []string      `name:"usb-ids" help:"usb.ids database files to search" type:"path" env:"USBDFS_USB_IDS"`
}

func (c *EnumerateCmd) Run(kctx *kong.Context, logger *slog.Logger) error {
	var uid [hal.UniqueIDSize]byte
	raw, err := hex.DecodeString(c.UID)
	if err != nil || len(raw) != len(uid) {
		return fmt.Errorf("uid %q: want %d hex digits: %w", c.UID, 2*len(uid), pkg.ErrInvalidParameter)
	}
	copy(uid[:], raw)
	if c.Address == 0 || c.Address > 127 {
		return fmt.Errorf("address %d: %w", c.Address, pkg.ErrInvalidParameter)
	}

	p, err := profile.Load(c.Profile)
	if err != nil {
		return err
	}
	cfg, err := p.Config()
	if err != nil {
		return fmt.Errorf("%s: %w", c.Profile, err)
	}
	desc := p.Descriptors()

	periph := sim.New(sim.WithUniqueID(uid))
	dev, err := device.New(periph, cfg, desc, device.Hooks{
		AddressAssigned: func(addr uint8) {
			logger.Debug("address assigned", "address", addr)
		},
	})
	if err != nil {
		return err
	}
	if p.Serial {
		desc.SetString(profile.SerialIndex, dev.SerialNumber())
	}
	dev.Init()

	e, err := enumerate(context.Background(), c.Timeout, periph, dev, c.Address, c.Retries)
	if err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}
	logger.Info("enumerated", "address", e.Address, "state", dev.State())

	db := usbid.New(c.USBIDs...)
	if err := db.Load(); err != nil {
		logger.Debug("usb id database unavailable", "error", err)
	}
	return report(kctx.Stdout, e, dev, db)
}

// enumerate runs the device main loop and the host in separate goroutines.
// The host raises an interrupt after every transaction and waits until the
// device has serviced it, so the two never touch the peripheral at once.
func enumerate(ctx context.Context, timeout time.Duration, periph *sim.Peripheral,
	dev *device.Device, address uint8, retries int,
) (*sim.Enumeration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	irq := make(chan struct{})
	ack := make(chan struct{}, 1)
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	host := sim.NewHost(periph, sim.WithRetries(retries), sim.WithStep(func() {
		select {
		case irq <- struct{}{}:
			<-ack
		case <-gctx.Done():
		}
	}))

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-done:
				return nil
			case <-irq:
				for i := 0; i < maxEvents && periph.Pending(); i++ {
					dev.Task()
				}
				ack <- struct{}{}
			}
		}
	})

	var e *sim.Enumeration
	g.Go(func() error {
		defer close(done)
		var err error
		e, err = host.Enumerate(gctx, address)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return e, nil
}

// report prints the enumeration transcript.
func report(w io.Writer, e *sim.Enumeration, dev *device.Device, db *usbid.Database) error {
	var dd device.DeviceDescriptor
	if err := device.ParseDeviceDescriptor(e.Device, &dd); err != nil {
		return err
	}
	pw := &printer{w: w}
	pw.printf("Device %04x:%04x %s\n", dd.VendorID, dd.ProductID, db.Name(dd.VendorID, dd.ProductID))
	pw.printf("  address        %d\n", e.Address)
	pw.printf("  state          %s (configuration %d)\n", dev.State(), dev.ActiveConfiguration())
	pw.printf("  bcdUSB         %x.%02x\n", dd.USBVersion>>8, dd.USBVersion&0xFF)
	pw.printf("  class          %02x/%02x/%02x\n", dd.DeviceClass, dd.DeviceSubClass, dd.DeviceProtocol)
	pw.printf("  bMaxPacketSize0 %d\n", dd.MaxPacketSize0)
	pw.printf("  bcdDevice      %x.%02x\n", dd.DeviceVersion>>8, dd.DeviceVersion&0xFF)
	for _, idx := range []uint8{dd.ManufacturerIndex, dd.ProductIndex, dd.SerialNumberIndex} {
		if idx != 0 {
			pw.printf("  string %d       %q\n", idx, e.Strings[idx])
		}
	}

	var cd device.ConfigurationDescriptor
	if err := device.ParseConfigurationDescriptor(e.Configuration, &cd); err != nil {
		return err
	}
	power := "bus-powered"
	if cd.Attributes&device.ConfigAttrSelfPowered != 0 {
		power = "self-powered"
	}
	pw.printf("Configuration %d: %d bytes, %d interfaces, %s, %d mA\n",
		cd.ConfigurationValue, cd.TotalLength, cd.NumInterfaces, power, 2*int(cd.MaxPower))

	for rest := e.Configuration[device.ConfigurationDescriptorSize:]; len(rest) >= 2; {
		n := int(rest[0])
		if n < 2 || n > len(rest) {
			return fmt.Errorf("configuration descriptor: %w", pkg.ErrDescriptorTooShort)
		}
		switch rest[1] {
		case device.DescriptorTypeInterface:
			var itf device.InterfaceDescriptor
			if err := device.ParseInterfaceDescriptor(rest, &itf); err != nil {
				return err
			}
			pw.printf("  Interface %d: class %02x/%02x/%02x, %d endpoints\n", itf.InterfaceNumber,
				itf.InterfaceClass, itf.InterfaceSubClass, itf.InterfaceProtocol, itf.NumEndpoints)
		case device.DescriptorTypeEndpoint:
			var ep device.EndpointDescriptor
			if err := device.ParseEndpointDescriptor(rest, &ep); err != nil {
				return err
			}
			dir := "OUT"
			if ep.EndpointAddress&hal.EndpointDirectionIn != 0 {
				dir = "IN"
			}
			pw.printf("    Endpoint 0x%02x %-3s %-9s %2d bytes, interval %d\n", ep.EndpointAddress, dir,
				device.EndpointType(ep.Attributes&0x03), ep.MaxPacketSize, ep.Interval)
		default:
			pw.printf("    Descriptor type 0x%02x, %d bytes\n", rest[1], n)
		}
		rest = rest[n:]
	}
	return pw.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}
