package transfers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bellybank/bellybank/internal/models"
)

func TestLockOrder(t *testing.T) {
	tests := []struct {
		name      string
		senderID  int64
		recipient *models.Account
		want      []int64
	}{
		{"external transfer locks only the sender", 5, nil, []int64{5}},
		{"recipient id below sender id", 9, &models.Account{ID: 3}, []int64{3, 9}},
		{"recipient id above sender id", 3, &models.Account{ID: 9}, []int64{3, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lockOrder(tt.senderID, tt.recipient))
		})
	}
}

func TestLockOrderIsSymmetric(t *testing.T) {
	// Opposing transfers between the same two accounts must agree on the
	// locking sequence, otherwise they can deadlock on each other's rows.
	ab := lockOrder(1, &models.Account{ID: 2})
	ba := lockOrder(2, &models.Account{ID: 1})

	assert.Equal(t, ab, ba)
}
