package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdfs/pkg"
)

const gadget = `
vendor_id: 0x1209
product_id: 0x0001
manufacturer: usbdfs
product: Test Gadget
serial: true
max_power: 100
interfaces:
  - class: 0x03
    subclass: 1
    protocol: 1
    endpoints:
      - {number: 1, type: interrupt, in: 8, interval: 10}
  - class: 0xFF
    endpoints:
      - {number: 2, type: bulk, in: 64, out: 64}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the command line and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	level, logger := pkg.GetLogLevel(), pkg.DefaultLogger
	t.Cleanup(func() {
		pkg.SetLogLevel(level)
		pkg.SetLogger(logger)
	})
	var stdout, stderr bytes.Buffer
	err := run(append([]string{"--log-color=never"}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestLayout(t *testing.T) {
	out, err := execute(t, "layout", writeFile(t, "gadget.yaml", gadget))
	require.NoError(t, err)

	assert.Contains(t, out, "EP  DIR  TYPE")
	assert.Regexp(t, `0\s+OUT\s+control\s+0x080\s+64\s+0x8400`, out)
	assert.Regexp(t, `1\s+IN\s+interrupt\s+0x0C0\s+8\s+-`, out)
	assert.Regexp(t, `2\s+OUT\s+bulk\s+0x108\s+64\s+0x8400`, out)
	assert.Contains(t, out, "packet memory: 328 of 1024 bytes used, 696 free; data buffers 136 of 832 bytes")
}

func TestLayoutJSON(t *testing.T) {
	out, err := execute(t, "layout", "--json", writeFile(t, "gadget.yaml", gadget))
	require.NoError(t, err)

	var info layoutInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Len(t, info.Slots, 5)
	assert.Equal(t, slotInfo{Endpoint: 2, Direction: "IN", Type: "bulk", Offset: 200, Size: 64}, info.Slots[4])
	assert.Equal(t, uint16(328), info.End)
	assert.Equal(t, 136, info.DataBuffers)
}

func TestLayoutOverBudget(t *testing.T) {
	profile := `{"interfaces": [{"endpoints": [
		{"number": 1, "type": "bulk", "in": 64, "out": 64},
		{"number": 2, "type": "bulk", "in": 64, "out": 64},
		{"number": 3, "type": "bulk", "in": 64, "out": 64},
		{"number": 4, "type": "bulk", "in": 64, "out": 64},
		{"number": 5, "type": "bulk", "in": 64, "out": 64},
		{"number": 6, "type": "bulk", "in": 64, "out": 64},
		{"number": 7, "type": "bulk", "in": 64, "out": 64}
	]}]}`
	_, err := execute(t, "layout", writeFile(t, "big.json", profile))
	assert.ErrorIs(t, err, pkg.ErrNoMemory)
}

func TestEnumerate(t *testing.T) {
	out, err := execute(t, "enumerate", "--address=9", "--uid=00112233445566778899aabb",
		writeFile(t, "gadget.yaml", gadget))
	require.NoError(t, err)

	assert.Contains(t, out, "Device 1209:0001")
	assert.Contains(t, out, "address        9\n")
	assert.Contains(t, out, "state          Configured (configuration 1)")
	assert.Contains(t, out, `string 2       "Test Gadget"`)
	assert.Contains(t, out, `string 3       "00112233445566778899AABB"`)
	assert.Contains(t, out, "Configuration 1: 48 bytes, 2 interfaces, bus-powered, 100 mA")
	assert.Contains(t, out, "Interface 1: class ff/00/00, 2 endpoints")
	assert.Regexp(t, `Endpoint 0x81 IN\s+interrupt\s+8 bytes, interval 10`, out)
	assert.Regexp(t, `Endpoint 0x02 OUT bulk\s+64 bytes`, out)
}

func TestEnumerateNamesVendor(t *testing.T) {
	ids := writeFile(t, "usb.ids", "1209  Generic\n\t0001  pid.codes Test PID\n")
	out, err := execute(t, "enumerate", "--usb-ids="+ids, writeFile(t, "gadget.yaml", gadget))
	require.NoError(t, err)
	assert.Contains(t, out, "Device 1209:0001 Generic pid.codes Test PID")
}

func TestEnumerateConfigFile(t *testing.T) {
	cfg := writeFile(t, "usbdfs.json", `{"address": 33}`)
	out, err := execute(t, "--config="+cfg, "enumerate", writeFile(t, "gadget.toml", `
vendor_id = 0x1209
product_id = 0x0002

[[interfaces]]
class = 0xFF

  [[interfaces.endpoints]]
  number = 1
  type = "bulk"
  out = 64
`))
	require.NoError(t, err)
	assert.Contains(t, out, "address        33\n")
	assert.Contains(t, out, "Device 1209:0002")
}

func TestEnumerateInvalidFlags(t *testing.T) {
	path := writeFile(t, "gadget.yaml", gadget)

	_, err := execute(t, "enumerate", "--uid=xyz", path)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	_, err = execute(t, "enumerate", "--address=200", path)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	_, err = execute(t, "enumerate", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "frobnicate")
	assert.Error(t, err)
}

func TestProfilingFlags(t *testing.T) {
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.prof")
	_, err := execute(t, "--prof-heap="+heap, "layout", writeFile(t, "gadget.yaml", gadget))
	require.NoError(t, err)
	assert.FileExists(t, heap)
}

func TestConfigPaths(t *testing.T) {
	j, y, tm := configPaths("/etc/usbdfs.yml")
	assert.Empty(t, j)
	assert.Equal(t, []string{"/etc/usbdfs.yml"}, y)
	assert.Empty(t, tm)

	j, y, tm = configPaths("")
	assert.Contains(t, j, "usbdfs.json")
	assert.Contains(t, y, "usbdfs.yaml")
	assert.Contains(t, tm, "usbdfs.toml")

	assert.Equal(t, "a.toml", findUserConfig([]string{"layout", "--config", "a.toml"}))
	assert.Equal(t, "b.json", findUserConfig([]string{"--config=b.json"}))
	t.Setenv("USBDFS_CONFIG", "c.yaml")
	assert.Equal(t, "c.yaml", findUserConfig(nil))
}
