package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDbyIP(t *testing.T) {
	tests := []struct {
		ip   string
		want uint32
	}{
		{ip: "0.0.0.1", want: 1},
		{ip: "192.168.0.10", want: 3232235530},
		{ip: "not-an-ip", want: 0},
		{ip: "::1", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, IDbyIP(tt.ip))
		})
	}
}

func TestNewNode(t *testing.T) {
	n, err := NewNode("192.168.0.10")
	require.NoError(t, err)

	a, b := n.Generate(), n.Generate()
	assert.NotEqual(t, a, b)
	assert.Equal(t, int64(3232235530%1024), a.Node())
}
