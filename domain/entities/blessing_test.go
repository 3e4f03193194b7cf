package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlessing_Evaluate(t *testing.T) {
	t.Parallel()

	actual := Podium{First: "ana", Second: "ben", Third: "cat"}

	tests := []struct {
		name       string
		prediction Podium
		wantStatus BlessingStatus
		wantPayout int64
	}{
		{
			name:       "exact order pays double",
			prediction: Podium{First: "ana", Second: "ben", Third: "cat"},
			wantStatus: BlessingStatusWonPerfect,
			wantPayout: 60,
		},
		{
			name:       "same names reversed pays wager back",
			prediction: Podium{First: "cat", Second: "ben", Third: "ana"},
			wantStatus: BlessingStatusWonPartial,
			wantPayout: 30,
		},
		{
			name:       "same names one swap pays wager back",
			prediction: Podium{First: "ben", Second: "ana", Third: "cat"},
			wantStatus: BlessingStatusWonPartial,
			wantPayout: 30,
		},
		{
			name:       "one wrong name pays nothing",
			prediction: Podium{First: "ana", Second: "ben", Third: "dan"},
			wantStatus: BlessingStatusLost,
			wantPayout: 0,
		},
		{
			name:       "all wrong pays nothing",
			prediction: Podium{First: "dan", Second: "eve", Third: "fay"},
			wantStatus: BlessingStatusLost,
			wantPayout: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := &Blessing{Prediction: tt.prediction, WagerAmount: 30, Status: BlessingStatusPending}
			status, payout := b.Evaluate(actual)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantPayout, payout)
		})
	}
}

func TestPodium_IsDistinct(t *testing.T) {
	t.Parallel()

	assert.True(t, Podium{First: "a", Second: "b", Third: "c"}.IsDistinct())
	assert.False(t, Podium{First: "a", Second: "a", Third: "c"}.IsDistinct())
	assert.False(t, Podium{First: "a", Second: "b", Third: "a"}.IsDistinct())
	assert.False(t, Podium{First: "a", Second: "b", Third: "b"}.IsDistinct())
}

func TestPodium_SameMembersRequiresExactMultiset(t *testing.T) {
	t.Parallel()

	p := Podium{First: "a", Second: "b", Third: "c"}
	assert.True(t, p.SameMembers(Podium{First: "c", Second: "a", Third: "b"}))
	assert.False(t, p.SameMembers(Podium{First: "a", Second: "a", Third: "b"}))
}

func TestBlessingStatus_PayoutTransactionType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TransactionTypeBlessingWinPerfect, BlessingStatusWonPerfect.PayoutTransactionType())
	assert.Equal(t, TransactionTypeBlessingWinPartial, BlessingStatusWonPartial.PayoutTransactionType())
	assert.Equal(t, TransactionTypeWindowExpiredRefund, BlessingStatusRefunded.PayoutTransactionType())
	assert.Equal(t, TransactionType(""), BlessingStatusLost.PayoutTransactionType())
}
