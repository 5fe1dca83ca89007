package specification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleTo(t *testing.T) {
	tests := []struct {
		role string
		want []string
	}{
		{"leadership", []string{"public", "private", "restricted"}},
		{"hr", []string{"public", "private", "restricted"}},
		{"associate", []string{"public", "private"}},
		{"customer", []string{"public"}},
		{"vendor", []string{"public"}},
		{"unknown", []string{"public"}},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, visibleTo(tt.role))
		})
	}
}
