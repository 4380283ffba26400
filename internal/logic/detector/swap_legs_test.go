package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSwapLegs_TwoTokensOppositeSign(t *testing.T) {
	owner, tokenX, tokenY := pk(2), pk(10), pk(11)

	legs := DetectSwapLegs([]OwnerDelta{
		{Owner: owner, Deltas: []TokenDelta{
			{Token: tokenX, Amount: dec("-30")},
			{Token: tokenY, Amount: dec("30.5")},
		}},
	})

	assert.Len(t, legs, 1)
	leg := legs[0]
	assert.Equal(t, owner, leg.Owner)
	assert.Equal(t, tokenX, leg.GivenToken)
	assert.True(t, leg.GivenAmount.Equal(dec("30")))
	assert.Equal(t, tokenY, leg.ReceivedToken)
	assert.True(t, leg.ReceivedAmount.Equal(dec("30.5")))
}

func TestDetectSwapLegs_RejectsNonSwapShapes(t *testing.T) {
	owner := pk(2)
	tokenX, tokenY, tokenZ := pk(10), pk(11), pk(12)

	tests := []struct {
		name   string
		deltas []TokenDelta
	}{
		{"单 token（纯转账）", []TokenDelta{
			{Token: tokenX, Amount: dec("5")},
		}},
		{"三 token（LP 操作）", []TokenDelta{
			{Token: tokenX, Amount: dec("-1")},
			{Token: tokenY, Amount: dec("2")},
			{Token: tokenZ, Amount: dec("3")},
		}},
		{"两 token 同为正", []TokenDelta{
			{Token: tokenX, Amount: dec("1")},
			{Token: tokenY, Amount: dec("2")},
		}},
		{"两 token 同为负", []TokenDelta{
			{Token: tokenX, Amount: dec("-1")},
			{Token: tokenY, Amount: dec("-2")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			legs := DetectSwapLegs([]OwnerDelta{{Owner: owner, Deltas: tt.deltas}})
			assert.Empty(t, legs)
		})
	}
}
