package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "engai", "test", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in           string
		insecure     bool
		want         string
		wantInsecure bool
	}{
		{"", false, "", false},
		{"localhost:4318", false, "localhost:4318", false},
		{"localhost:4318", true, "localhost:4318", true},
		{"http://collector:4318/", false, "collector:4318", true},
		{"https://otel.example.com", false, "otel.example.com", false},
	}
	for _, tt := range tests {
		got, insecure := ParseEndpoint(tt.in, tt.insecure)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantInsecure, insecure, tt.in)
	}
}
