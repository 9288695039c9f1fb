package usbid

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `#
# List of USB ID's
#
0483  STMicroelectronics
	5740  Virtual COM Port
	df11  STM Device in DFU Mode
1209  Generic
	0001  pid.codes Test PID
		00  interface line
	zzzz  broken product
bad!  not a vendor
	1234  orphan product

C 03  Human Interface Device
	01  Boot Interface Subclass
`

func TestRead(t *testing.T) {
	db := New()
	require.NoError(t, db.Read(strings.NewReader(sample)))

	vendors, products := db.Len()
	assert.Equal(t, 2, vendors)
	assert.Equal(t, 3, products)

	assert.Equal(t, "STMicroelectronics", db.Vendor(0x0483))
	assert.Equal(t, "STM Device in DFU Mode", db.Product(0x0483, 0xDF11))
	assert.Equal(t, "pid.codes Test PID", db.Product(0x1209, 0x0001))
	assert.Empty(t, db.Product(0x1209, 0x1234), "product after an invalid vendor line")
	assert.Empty(t, db.Vendor(0x0003), "class section")
}

func TestName(t *testing.T) {
	db := New()
	require.NoError(t, db.Read(strings.NewReader(sample)))

	tests := []struct {
		vid, pid uint16
		want     string
	}{
		{0x0483, 0x5740, "STMicroelectronics Virtual COM Port"},
		{0x0483, 0x0001, "STMicroelectronics 0001"},
		{0xCAFE, 0xBABE, "cafe babe"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, db.Name(tt.vid, tt.pid))
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usb.ids")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	db := New(filepath.Join(dir, "missing"), path)
	require.NoError(t, db.Load())
	assert.Equal(t, path, db.Source())

	// A second load keeps the first result.
	require.NoError(t, os.Remove(path))
	require.NoError(t, db.Load())
	assert.Equal(t, "Generic", db.Vendor(0x1209))
}

func TestLoadMissing(t *testing.T) {
	db := New(filepath.Join(t.TempDir(), "usb.ids"))
	assert.ErrorIs(t, db.Load(), fs.ErrNotExist)
	assert.Empty(t, db.Source())
	assert.Equal(t, "0483 5740", db.Name(0x0483, 0x5740))
}

func TestConcurrentLookup(t *testing.T) {
	db := New()
	require.NoError(t, db.Read(strings.NewReader(sample)))

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			assert.Equal(t, "Generic pid.codes Test PID", db.Name(0x1209, 0x0001))
		})
	}
	wg.Wait()
}
