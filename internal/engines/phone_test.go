package engines

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"international with formatting", "+7 747 123-45-67", "87471234567"},
		{"international compact", "+77471234567", "87471234567"},
		{"national format kept", "87471234567", "87471234567"},
		{"ten digits get leading 8", "7471234567", "87471234567"},
		{"parentheses stripped", "8 (747) 123-45-67", "87471234567"},
		{"unrecognized length passes through", "12345", "12345"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.input))
		})
	}
}
