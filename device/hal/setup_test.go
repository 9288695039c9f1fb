package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdfs/pkg"
)

func TestParseSetupPacket(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    SetupPacket
		wantErr error
	}{
		{
			name: "GET_DESCRIPTOR device",
			data: []byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00},
			want: SetupPacket{RequestType: 0x80, Request: 0x06, Value: 0x0100, Length: 18},
		},
		{
			name: "SET_ADDRESS",
			data: []byte{0x00, 0x05, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00},
			want: SetupPacket{Request: 0x05, Value: 5},
		},
		{
			name: "CLEAR_FEATURE endpoint 0x81",
			data: []byte{0x02, 0x01, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00},
			want: SetupPacket{RequestType: 0x02, Request: 0x01, Index: 0x81},
		},
		{
			name:    "too short",
			data:    []byte{0x80, 0x06, 0x00},
			wantErr: pkg.ErrSetupPacketTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SetupPacket
			err := ParseSetupPacket(tt.data, &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupPacketMarshalTo(t *testing.T) {
	s := SetupPacket{RequestType: 0x80, Request: 0x06, Value: 0x0302, Index: 0x0409, Length: 255}

	buf := make([]byte, SetupPacketSize)
	require.Equal(t, SetupPacketSize, s.MarshalTo(buf))
	assert.Equal(t, []byte{0x80, 0x06, 0x02, 0x03, 0x09, 0x04, 0xFF, 0x00}, buf)

	var back SetupPacket
	require.NoError(t, ParseSetupPacket(buf, &back))
	assert.Equal(t, s, back)

	assert.Zero(t, s.MarshalTo(make([]byte, 7)))
}

func TestSetupPacketFields(t *testing.T) {
	tests := []struct {
		name      string
		pkt       SetupPacket
		toHost    bool
		reqType   uint8
		recipient uint8
	}{
		{"standard device in", SetupPacket{RequestType: 0x80}, true, RequestTypeStandard, RequestRecipientDevice},
		{"standard endpoint out", SetupPacket{RequestType: 0x02}, false, RequestTypeStandard, RequestRecipientEndpoint},
		{"class interface out", SetupPacket{RequestType: 0x21}, false, RequestTypeClass, RequestRecipientInterface},
		{"vendor other in", SetupPacket{RequestType: 0xC3}, true, RequestTypeVendor, RequestRecipientOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.toHost, tt.pkt.IsDeviceToHost())
			assert.Equal(t, !tt.toHost, tt.pkt.IsHostToDevice())
			assert.Equal(t, tt.reqType, tt.pkt.Type())
			assert.Equal(t, tt.recipient, tt.pkt.Recipient())
			assert.Equal(t, tt.reqType == RequestTypeStandard, tt.pkt.IsStandard())
			assert.Equal(t, tt.reqType == RequestTypeClass, tt.pkt.IsClass())
			assert.Equal(t, tt.reqType == RequestTypeVendor, tt.pkt.IsVendor())
		})
	}
}

func TestSetupPacketIndexFields(t *testing.T) {
	s := SetupPacket{Value: 0x0203, Index: 0x0083}
	assert.Equal(t, uint8(2), s.DescriptorType())
	assert.Equal(t, uint8(3), s.DescriptorIndex())
	assert.Equal(t, uint8(0x83), s.InterfaceNumber())
	assert.Equal(t, uint8(3), s.EndpointNumber())
	assert.Equal(t, DirIn, s.EndpointDirection())

	s.Index = 0x0F
	assert.Equal(t, uint8(7), s.EndpointNumber())
	assert.Equal(t, DirOut, s.EndpointDirection())
}

func TestSetupPacketString(t *testing.T) {
	var s SetupPacket
	GetDescriptorSetup(&s, 0x01, 0, 0, 18)
	assert.Equal(t, "SETUP[IN Standard Device] GET_DESCRIPTOR Value=0x0100 Index=0x0000 Length=18", s.String())

	s = SetupPacket{RequestType: 0x21, Request: 0x0A}
	assert.Contains(t, s.String(), "OUT Class Interface] 0x0A")

	assert.Equal(t, "0x42", RequestName(0x42))
}

func TestSetupBuilders(t *testing.T) {
	var s SetupPacket

	GetDescriptorSetup(&s, 0x03, 2, 0x0409, 255)
	assert.Equal(t, SetupPacket{0x80, RequestGetDescriptor, 0x0302, 0x0409, 255}, s)

	SetAddressSetup(&s, 0x12)
	assert.Equal(t, SetupPacket{0x00, RequestSetAddress, 0x12, 0, 0}, s)

	SetConfigurationSetup(&s, 1)
	assert.Equal(t, SetupPacket{0x00, RequestSetConfiguration, 1, 0, 0}, s)

	GetConfigurationSetup(&s)
	assert.Equal(t, SetupPacket{0x80, RequestGetConfiguration, 0, 0, 1}, s)

	GetStatusSetup(&s, RequestRecipientEndpoint, 0x81)
	assert.Equal(t, SetupPacket{0x82, RequestGetStatus, 0, 0x81, 2}, s)

	SetFeatureSetup(&s, RequestRecipientEndpoint, FeatureEndpointHalt, 0x01)
	assert.Equal(t, SetupPacket{0x02, RequestSetFeature, 0, 0x01, 0}, s)

	ClearFeatureSetup(&s, RequestRecipientDevice, FeatureDeviceRemoteWakeup, 0)
	assert.Equal(t, SetupPacket{0x00, RequestClearFeature, 1, 0, 0}, s)

	SetInterfaceSetup(&s, 2, 1)
	assert.Equal(t, SetupPacket{0x01, RequestSetInterface, 1, 2, 0}, s)

	GetInterfaceSetup(&s, 2)
	assert.Equal(t, SetupPacket{0x81, RequestGetInterface, 0, 2, 1}, s)
}
