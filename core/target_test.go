package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    PeerTarget
		wantErr bool
	}{
		{in: "192.168.1.5", want: PeerTarget{"192.168.1.5", 8080}},
		{in: "192.168.1.5:9000", want: PeerTarget{"192.168.1.5", 9000}},
		{in: " host.local:81 ", want: PeerTarget{"host.local", 81}},
		{in: "[fe80::1]:9000", want: PeerTarget{"fe80::1", 9000}},
		{in: "fe80::1", want: PeerTarget{"fe80::1", 8080}},
		{in: "", wantErr: true},
		{in: ":9000", wantErr: true},
		{in: "host:0", wantErr: true},
		{in: "host:70000", wantErr: true},
		{in: "host:http", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in, DefaultPort)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTarget)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTargetNoDefaultPort(t *testing.T) {
	_, err := ParseTarget("10.0.0.1", 0)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestParseTargetsDedupes(t *testing.T) {
	targets, err := ParseTargets([]string{"10.0.0.1", "10.0.0.1:8080", "10.0.0.2"}, DefaultPort)
	require.NoError(t, err)
	assert.Equal(t, []PeerTarget{{"10.0.0.1", 8080}, {"10.0.0.2", 8080}}, targets)

	_, err = ParseTargets([]string{"10.0.0.1", ""}, DefaultPort)
	assert.Error(t, err)
}

func TestPeerTargetString(t *testing.T) {
	assert.Equal(t, "10.0.0.1:8080", NewPeerTarget("10.0.0.1", 8080).String())
	assert.Equal(t, "[::1]:9000", NewPeerTarget("::1", 9000).String())
}
