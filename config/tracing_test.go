package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTLPEndpoint(t *testing.T) {
	tests := []struct {
		raw  string
		want otlpEndpoint
	}{
		{"http://collector:4318", otlpEndpoint{hostPort: "collector:4318", path: "/v1/traces", insecure: true}},
		{"https://otel.example.com/custom/traces", otlpEndpoint{hostPort: "otel.example.com", path: "/custom/traces"}},
		{"collector:4318", otlpEndpoint{hostPort: "collector:4318", path: "/v1/traces", insecure: true}},
	}
	for _, tt := range tests {
		got, err := parseOTLPEndpoint(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	for _, bad := range []string{"", "grpc://collector:4317", "collector:4318/v1/traces", "http:///nohost"} {
		_, err := parseOTLPEndpoint(bad)
		assert.Error(t, err, bad)
	}
}
