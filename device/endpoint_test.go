package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/pkg"
)

func TestEndpointType(t *testing.T) {
	tests := []struct {
		typ  EndpointType
		name string
		kind hal.EndpointKind
	}{
		{EndpointTypeControl, "control", hal.KindControl},
		{EndpointTypeIsochronous, "isochronous", hal.KindIsochronous},
		{EndpointTypeBulk, "bulk", hal.KindBulk},
		{EndpointTypeInterrupt, "interrupt", hal.KindInterrupt},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.typ.String())
		assert.Equal(t, tt.kind, tt.typ.kind())

		got, err := ParseEndpointType(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.typ, got)
	}

	assert.Equal(t, "unknown(7)", EndpointType(7).String())
	_, err := ParseEndpointType("hub")
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestEndpointConfig(t *testing.T) {
	c := EndpointConfig{Type: EndpointTypeBulk, InSize: 16}
	assert.True(t, c.Configured())
	assert.Equal(t, uint16(16), c.Size(hal.DirIn))
	assert.Zero(t, c.Size(hal.DirOut))
	assert.False(t, EndpointConfig{Type: EndpointTypeBulk}.Configured())
}

func TestConfigValidate(t *testing.T) {
	bulk := func(in, out uint16) EndpointConfig {
		return EndpointConfig{Type: EndpointTypeBulk, InSize: in, OutSize: out}
	}

	tests := []struct {
		name  string
		setup func(c *Config)
		err   error
	}{
		{"empty", func(c *Config) {}, nil},
		{"explicit control endpoint", func(c *Config) { c.Endpoints[0] = control }, nil},
		{"typical", func(c *Config) {
			c.Endpoints[1] = EndpointConfig{Type: EndpointTypeInterrupt, InSize: 8}
			c.Endpoints[2] = bulk(64, 64)
		}, nil},
		{"exact budget", func(c *Config) {
			for n := 1; n < 7; n++ {
				c.Endpoints[n] = bulk(64, 64)
			}
			c.Endpoints[7] = bulk(64, 0)
		}, nil},
		{"over budget", func(c *Config) {
			for n := 1; n < NumEndpoints; n++ {
				c.Endpoints[n] = bulk(64, 64)
			}
		}, pkg.ErrNoMemory},
		{"small control endpoint", func(c *Config) {
			c.Endpoints[0] = EndpointConfig{Type: EndpointTypeControl, InSize: 8, OutSize: 8}
		}, pkg.ErrInvalidParameter},
		{"isochronous", func(c *Config) {
			c.Endpoints[3] = EndpointConfig{Type: EndpointTypeIsochronous, InSize: 64}
		}, pkg.ErrNotSupported},
		{"second control endpoint", func(c *Config) {
			c.Endpoints[3] = EndpointConfig{Type: EndpointTypeControl, InSize: 64}
		}, pkg.ErrInvalidParameter},
		{"odd size", func(c *Config) { c.Endpoints[1] = bulk(0, 7) }, pkg.ErrInvalidBufferSize},
		{"oversized", func(c *Config) { c.Endpoints[1] = bulk(128, 0) }, pkg.ErrInvalidBufferSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			tt.setup(&c)
			err := c.Validate()
			if tt.err == nil {
				require.NoError(t, err)
				assert.Equal(t, control, c.Endpoints[0])
				assert.LessOrEqual(t, c.DataBufferSize(), DataBufferBudget)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestConfigValidateNamesEndpoint(t *testing.T) {
	var c Config
	c.Endpoints[4] = EndpointConfig{Type: EndpointTypeBulk, OutSize: 3}
	assert.ErrorContains(t, c.Validate(), "endpoint 4")
}
