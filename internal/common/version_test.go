package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		remote string
		local  string
		want   bool
	}{
		{"1.2.0", "1.1.9", true},
		{"1.1.9", "1.2.0", false},
		{"1.2.0", "1.2.0", false},
		{"1.10.0", "1.9.0", true},
		{"2.0.0", "1.99.99", true},
		{"1.2", "1.2.0", false},
		{"1.2.1", "1.2", true},
		{"1.2.0", "dev", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNewerVersion(tt.remote, tt.local),
			"remote=%s local=%s", tt.remote, tt.local)
	}
}
