package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDefault, "Default"},
		{StateAddress, "Address"},
		{StateConfigured, "Configured"},
		{State(9), "Unknown State (9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestDataBufferBudget(t *testing.T) {
	assert.Equal(t, 832, DataBufferBudget)

	// A configuration that fits compiles; one that does not would fail to
	// convert the negative difference to uint.
	const _ uint = DataBufferBudget - (64 + 64 + 64 + 64 + 8 + 8)
}
