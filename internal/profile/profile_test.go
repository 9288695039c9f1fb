package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdfs/device"
	"github.com/ardnew/usbdfs/device/hal/sim"
	"github.com/ardnew/usbdfs/pkg"
)

const yamlProfile = `
vendor_id: 0x1209
product_id: 0x0001
device_version: 0x0100
manufacturer: usbdfs
product: Test Gadget
serial: true
self_powered: true
max_power: 100
interfaces:
  - name: Keys
    class: 0x03
    subclass: 1
    protocol: 1
    endpoints:
      - {number: 1, type: interrupt, in: 8, interval: 10}
  - class: 0xFF
    endpoints:
      - {number: 2, type: bulk, in: 64, out: 64}
`

const tomlProfile = `
vendor_id = 0x1209
product_id = 0x0001
device_version = 0x0100
manufacturer = "usbdfs"
product = "Test Gadget"
serial = true
self_powered = true
max_power = 100

[[interfaces]]
name = "Keys"
class = 0x03
subclass = 1
protocol = 1

  [[interfaces.endpoints]]
  number = 1
  type = "interrupt"
  in = 8
  interval = 10

[[interfaces]]
class = 0xFF

  [[interfaces.endpoints]]
  number = 2
  type = "bulk"
  in = 64
  out = 64
`

const jsonProfile = `{
  "vendor_id": 4617, "product_id": 1, "device_version": 256,
  "manufacturer": "usbdfs", "product": "Test Gadget", "serial": true,
  "self_powered": true, "max_power": 100,
  "interfaces": [
    {"name": "Keys", "class": 3, "subclass": 1, "protocol": 1,
     "endpoints": [{"number": 1, "type": "interrupt", "in": 8, "interval": 10}]},
    {"class": 255, "endpoints": [{"number": 2, "type": "bulk", "in": 64, "out": 64}]}
  ]
}`

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFormats(t *testing.T) {
	want, err := Load(writeProfile(t, "gadget.yaml", yamlProfile))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1209), want.VendorID)
	require.Len(t, want.Interfaces, 2)
	assert.Equal(t, Endpoint{Number: 2, Type: "bulk", In: 64, Out: 64}, want.Interfaces[1].Endpoints[0])

	for name, content := range map[string]string{
		"gadget.toml": tomlProfile,
		"gadget.json": jsonProfile,
		"gadget.yml":  yamlProfile,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Load(writeProfile(t, name, content))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeProfile(t, "gadget.ini", ""))
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	for name, content := range map[string]string{
		"unknown.yaml": "vendor: 1\n",
		"unknown.toml": "vendor = 1\n",
		"unknown.json": `{"vendor": 1}`,
		"range.yaml":   "vendor_id: 70000\n",
	} {
		_, err := Load(writeProfile(t, name, content))
		assert.Error(t, err, name)
	}
}

func TestConfig(t *testing.T) {
	p, err := Parse([]byte(yamlProfile), FormatYAML)
	require.NoError(t, err)

	cfg, err := p.Config()
	require.NoError(t, err)
	assert.Equal(t, device.EndpointConfig{Type: device.EndpointTypeInterrupt, InSize: 8}, cfg.Endpoints[1])
	assert.Equal(t, device.EndpointConfig{Type: device.EndpointTypeBulk, InSize: 64, OutSize: 64}, cfg.Endpoints[2])
	assert.Equal(t, 136, cfg.DataBufferSize())
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		eps  []Endpoint
		err  error
	}{
		{"endpoint 0", []Endpoint{{Number: 0, Type: "bulk", In: 8}}, pkg.ErrInvalidEndpoint},
		{"endpoint 8", []Endpoint{{Number: 8, Type: "bulk", In: 8}}, pkg.ErrInvalidEndpoint},
		{"duplicate", []Endpoint{{Number: 1, Type: "bulk", In: 8}, {Number: 1, Type: "bulk", Out: 8}}, pkg.ErrInvalidEndpoint},
		{"type", []Endpoint{{Number: 1, Type: "fast", In: 8}}, pkg.ErrInvalidParameter},
		{"isochronous", []Endpoint{{Number: 1, Type: "isochronous", In: 8}}, pkg.ErrNotSupported},
		{"odd size", []Endpoint{{Number: 1, Type: "bulk", In: 7}}, pkg.ErrInvalidBufferSize},
		{"budget", []Endpoint{
			{Number: 1, Type: "bulk", In: 64, Out: 64},
			{Number: 2, Type: "bulk", In: 64, Out: 64},
			{Number: 3, Type: "bulk", In: 64, Out: 64},
			{Number: 4, Type: "bulk", In: 64, Out: 64},
			{Number: 5, Type: "bulk", In: 64, Out: 64},
			{Number: 6, Type: "bulk", In: 64, Out: 64},
			{Number: 7, Type: "bulk", In: 64, Out: 64},
		}, pkg.ErrNoMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{Interfaces: []Interface{{Endpoints: tt.eps}}}
			_, err := p.Config()
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDescriptors(t *testing.T) {
	p, err := Parse([]byte(yamlProfile), FormatYAML)
	require.NoError(t, err)
	d := p.Descriptors()

	var dev device.DeviceDescriptor
	require.NoError(t, device.ParseDeviceDescriptor(d.DeviceDescriptor(), &dev))
	assert.Equal(t, uint16(0x1209), dev.VendorID)
	assert.Equal(t, uint8(device.EP0Size), dev.MaxPacketSize0)
	assert.Equal(t, uint8(ManufacturerIndex), dev.ManufacturerIndex)
	assert.Equal(t, uint8(SerialIndex), dev.SerialNumberIndex)

	config := d.ConfigurationDescriptor()
	var hdr device.ConfigurationDescriptor
	require.NoError(t, device.ParseConfigurationDescriptor(config, &hdr))
	// header, 2 interfaces, 3 endpoint descriptors
	assert.Equal(t, uint16(9+2*9+3*7), hdr.TotalLength)
	assert.Len(t, config, int(hdr.TotalLength))
	assert.Equal(t, uint8(2), hdr.NumInterfaces)
	assert.Equal(t, uint8(device.ConfigAttrBusPowered|device.ConfigAttrSelfPowered), hdr.Attributes)
	assert.Equal(t, uint8(50), hdr.MaxPower)

	var itf device.InterfaceDescriptor
	require.NoError(t, device.ParseInterfaceDescriptor(d.InterfaceDescriptor(1), &itf))
	assert.Equal(t, uint8(2), itf.NumEndpoints)
	assert.Equal(t, uint8(0xFF), itf.InterfaceClass)
	assert.Zero(t, itf.InterfaceIndex)

	require.NoError(t, device.ParseInterfaceDescriptor(d.InterfaceDescriptor(0), &itf))
	assert.Equal(t, uint8(4), itf.InterfaceIndex)
	assert.Equal(t, "Keys", sim.DecodeString(d.StringDescriptor(device.LangIDUSEnglish, 4)))

	assert.Nil(t, d.StringDescriptor(device.LangIDUSEnglish, SerialIndex), "left for the caller")
}

func TestDescriptorsWithoutStrings(t *testing.T) {
	d := (&Profile{VendorID: 1}).Descriptors()
	var dev device.DeviceDescriptor
	require.NoError(t, device.ParseDeviceDescriptor(d.DeviceDescriptor(), &dev))
	assert.Zero(t, dev.ManufacturerIndex)
	assert.Zero(t, dev.ProductIndex)
	assert.Zero(t, dev.SerialNumberIndex)
	assert.Nil(t, d.StringDescriptor(device.LangIDUSEnglish, ManufacturerIndex))
}

func TestEnumerateProfile(t *testing.T) {
	p, err := Parse([]byte(tomlProfile), FormatTOML)
	require.NoError(t, err)
	cfg, err := p.Config()
	require.NoError(t, err)
	desc := p.Descriptors()

	periph := sim.New()
	dev, err := device.New(periph, cfg, desc, device.Hooks{})
	require.NoError(t, err)
	desc.SetString(SerialIndex, dev.SerialNumber())
	dev.Init()

	host := sim.NewHost(periph, sim.WithStep(dev.Task))
	e, err := host.Enumerate(t.Context(), 7)
	require.NoError(t, err)

	assert.Equal(t, device.StateConfigured, dev.State())
	assert.Equal(t, desc.ConfigurationDescriptor(), e.Configuration)
	assert.Equal(t, "usbdfs", e.Strings[ManufacturerIndex])
	assert.Equal(t, "Test Gadget", e.Strings[ProductIndex])
	assert.Len(t, e.Strings[SerialIndex], 24)
}
