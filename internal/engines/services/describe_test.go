package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name    string
		service string
		details map[string]string
		want    string
	}{
		{
			name:    "mobile top-up",
			service: "mobile",
			details: map[string]string{"operator": "beeline", "phone": "87051234567"},
			want:    "Mobile: BEELINE 87051234567",
		},
		{
			name:    "utilities",
			service: "utilities",
			details: map[string]string{"service": "water", "account": "AC-100"},
			want:    "Utilities: WATER (AC-100)",
		},
		{
			name:    "fine",
			service: "fines",
			details: map[string]string{"type": "speeding", "value": "KZ123"},
			want:    "Fine: speeding KZ123",
		},
		{
			name:    "eco contribution ignores details",
			service: "eco_tree",
			want:    "Eco contribution",
		},
		{
			name:    "fallback names the category",
			service: "games",
			want:    "Payment: games",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.service, tt.details))
		})
	}
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("mobile"))
	assert.True(t, Known("ortak"))
	assert.True(t, Known("other"))
	assert.False(t, Known("lottery"))
}

func TestDirectoryIdentitiesAreUnique(t *testing.T) {
	phones := make(map[string]string)
	cards := make(map[string]string)

	for name, info := range directory {
		if prev, dup := phones[info.Phone]; dup {
			t.Errorf("settlement phone %s shared by %s and %s", info.Phone, prev, name)
		}
		phones[info.Phone] = name

		if prev, dup := cards[info.Card]; dup {
			t.Errorf("settlement card %s shared by %s and %s", info.Card, prev, name)
		}
		cards[info.Card] = name
	}
}
