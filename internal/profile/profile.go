// Package profile loads device profiles: files that describe a device's
// identity, strings, interfaces and endpoints, from which the endpoint
// configuration and a static descriptor set are built.
//
// Profiles are YAML (.yaml, .yml), TOML (.toml) or JSON (.json):
//
//	vendor_id: 0x1209
//	product_id: 0x0001
//	manufacturer: usbdfs
//	product: Keyboard
//	serial: true
//	max_power: 100
//	interfaces:
//	  - class: 0x03
//	    subclass: 1
//	    protocol: 1
//	    endpoints:
//	      - {number: 1, type: interrupt, in: 8, interval: 10}
package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbdfs/device"
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

// Profile describes a device with a single configuration.
type Profile struct {
	VendorID      uint16 `yaml:"vendor_id" toml:"vendor_id" json:"vendor_id"`
	ProductID     uint16 `yaml:"product_id" toml:"product_id" json:"product_id"`
	DeviceVersion uint16 `yaml:"device_version" toml:"device_version" json:"device_version"`
	Class         uint8  `yaml:"class" toml:"class" json:"class"`
	SubClass      uint8  `yaml:"subclass" toml:"subclass" json:"subclass"`
	Protocol      uint8  `yaml:"protocol" toml:"protocol" json:"protocol"`

	Manufacturer string `yaml:"manufacturer" toml:"manufacturer" json:"manufacturer"`
	Product      string `yaml:"product" toml:"product" json:"product"`
	// Serial reserves a string index for the serial number generated from
	// the chip's unique ID.
	Serial bool `yaml:"serial" toml:"serial" json:"serial"`

	SelfPowered  bool   `yaml:"self_powered" toml:"self_powered" json:"self_powered"`
	RemoteWakeup bool   `yaml:"remote_wakeup" toml:"remote_wakeup" json:"remote_wakeup"`
	MaxPower     uint16 `yaml:"max_power" toml:"max_power" json:"max_power"` // mA

	Interfaces []Interface `yaml:"interfaces" toml:"interfaces" json:"interfaces"`
}

// Interface is one interface of the configuration.
type Interface struct {
	Name      string     `yaml:"name" toml:"name" json:"name"`
	Class     uint8      `yaml:"class" toml:"class" json:"class"`
	SubClass  uint8      `yaml:"subclass" toml:"subclass" json:"subclass"`
	Protocol  uint8      `yaml:"protocol" toml:"protocol" json:"protocol"`
	Endpoints []Endpoint `yaml:"endpoints" toml:"endpoints" json:"endpoints"`
}

// Endpoint is one data endpoint. In and Out are the buffer sizes of the two
// directions; zero omits the direction.
type Endpoint struct {
	Number   uint8  `yaml:"number" toml:"number" json:"number"`
	Type     string `yaml:"type" toml:"type" json:"type"`
	In       uint16 `yaml:"in" toml:"in" json:"in"`
	Out      uint16 `yaml:"out" toml:"out" json:"out"`
	Interval uint8  `yaml:"interval" toml:"interval" json:"interval"`
}

// Format is a profile file encoding.
type Format string

// Profile formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%s: unknown profile format: %w", path, pkg.ErrInvalidParameter)
}

// Load reads the profile at path.
func Load(path string) (*Profile, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentProfile, "profile loaded", "path", path,
		"interfaces", len(p.Interfaces))
	return p, nil
}

// Parse decodes a profile. Unknown fields are errors.
func Parse(data []byte, format Format) (*Profile, error) {
	p := new(Profile)
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(p); err != nil {
			return nil, err
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data)).Strict(true)
		if err := dec.Decode(p); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("format %q: %w", format, pkg.ErrInvalidParameter)
	}
	return p, nil
}

// Config returns the endpoint configuration, validated.
func (p *Profile) Config() (device.Config, error) {
	var cfg device.Config
	for i, itf := range p.Interfaces {
		for _, ep := range itf.Endpoints {
			if ep.Number == 0 || ep.Number >= device.NumEndpoints {
				return cfg, fmt.Errorf("interface %d: endpoint %d: %w", i, ep.Number, pkg.ErrInvalidEndpoint)
			}
			t, err := device.ParseEndpointType(ep.Type)
			if err != nil {
				return cfg, fmt.Errorf("interface %d: endpoint %d: %w", i, ep.Number, err)
			}
			slot := &cfg.Endpoints[ep.Number]
			if slot.Configured() {
				return cfg, fmt.Errorf("interface %d: endpoint %d: used twice: %w", i, ep.Number, pkg.ErrInvalidEndpoint)
			}
			*slot = device.EndpointConfig{Type: t, InSize: ep.In, OutSize: ep.Out}
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// String indices assigned by Descriptors.
const (
	ManufacturerIndex = 1
	ProductIndex      = 2
	SerialIndex       = 3
)

// Descriptors builds the device, configuration and string descriptors. The
// serial number string, if reserved, is left empty for the caller to fill
// with Device.SerialNumber. Interface names take the indices after it.
func (p *Profile) Descriptors() *device.StaticDescriptors {
	dev := device.DeviceDescriptor{
		USBVersion:        0x0200,
		DeviceClass:       p.Class,
		DeviceSubClass:    p.SubClass,
		DeviceProtocol:    p.Protocol,
		MaxPacketSize0:    device.EP0Size,
		VendorID:          p.VendorID,
		ProductID:         p.ProductID,
		DeviceVersion:     p.DeviceVersion,
		NumConfigurations: 1,
	}
	strs := []string{p.Manufacturer, p.Product, ""}
	if p.Manufacturer != "" {
		dev.ManufacturerIndex = ManufacturerIndex
	}
	if p.Product != "" {
		dev.ProductIndex = ProductIndex
	}
	if p.Serial {
		dev.SerialNumberIndex = SerialIndex
	}

	var parts [][]byte
	for i, itf := range p.Interfaces {
		desc := device.InterfaceDescriptor{
			InterfaceNumber:   uint8(i),
			NumEndpoints:      uint8(countDirections(itf.Endpoints)),
			InterfaceClass:    itf.Class,
			InterfaceSubClass: itf.SubClass,
			InterfaceProtocol: itf.Protocol,
		}
		if itf.Name != "" {
			strs = append(strs, itf.Name)
			desc.InterfaceIndex = uint8(len(strs))
		}
		parts = append(parts, desc.Bytes())
		for _, ep := range itf.Endpoints {
			parts = append(parts, endpointDescriptors(ep)...)
		}
	}

	attrs := uint8(device.ConfigAttrBusPowered)
	if p.SelfPowered {
		attrs |= device.ConfigAttrSelfPowered
	}
	if p.RemoteWakeup {
		attrs |= device.ConfigAttrRemoteWakeup
	}
	header := device.ConfigurationDescriptor{
		NumInterfaces:      uint8(len(p.Interfaces)),
		ConfigurationValue: 1,
		Attributes:         attrs,
		MaxPower:           uint8(min(p.MaxPower, 500) / 2),
	}

	d := device.NewStaticDescriptors(&dev, header.Assemble(parts...), strs...)
	for i, s := range strs {
		if s == "" {
			d.Strings[i] = nil
		}
	}
	return d
}

func countDirections(eps []Endpoint) int {
	n := 0
	for _, ep := range eps {
		if ep.In != 0 {
			n++
		}
		if ep.Out != 0 {
			n++
		}
	}
	return n
}

// endpointDescriptors returns one descriptor per direction with a buffer.
func endpointDescriptors(ep Endpoint) [][]byte {
	t, _ := device.ParseEndpointType(ep.Type)
	var out [][]byte
	for _, dir := range []struct {
		addr uint8
		size uint16
	}{
		{ep.Number | hal.EndpointDirectionIn, ep.In},
		{ep.Number, ep.Out},
	} {
		if dir.size == 0 {
			continue
		}
		desc := device.EndpointDescriptor{
			EndpointAddress: dir.addr,
			Attributes:      uint8(t),
			MaxPacketSize:   dir.size,
			Interval:        ep.Interval,
		}
		out = append(out, desc.Bytes())
	}
	return out
}
