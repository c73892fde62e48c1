package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseTier_AllCombinations(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
		want    Tier
	}{
		{"all dry", Reading{false, false, false}, TierDry},
		{"low only", Reading{true, false, false}, TierAdvisory},
		{"mid only", Reading{false, true, false}, TierWatch},
		{"high only", Reading{false, false, true}, TierDry},
		{"low and mid", Reading{true, true, false}, TierWatch},
		{"low and high", Reading{true, false, true}, TierAdvisory},
		{"mid and high", Reading{false, true, true}, TierWatch},
		{"all wet", Reading{true, true, true}, TierFlashFlood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FuseTier(tt.reading))
		})
	}
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "dry", TierDry.String())
	assert.Equal(t, "advisory", TierAdvisory.String())
	assert.Equal(t, "watch", TierWatch.String())
	assert.Equal(t, "flash-flood", TierFlashFlood.String())
}

func TestParseCategory(t *testing.T) {
	for _, valid := range []string{"flood-advisory", "flood-watch", "flash-flood", "all-clear"} {
		c, err := ParseCategory(valid)
		assert.NoError(t, err)
		assert.Equal(t, Category(valid), c)
	}
	_, err := ParseCategory("tsunami")
	assert.Error(t, err)
}

func TestCategory_Tier(t *testing.T) {
	assert.Equal(t, TierAdvisory, CategoryAdvisory.Tier())
	assert.Equal(t, TierWatch, CategoryWatch.Tier())
	assert.Equal(t, TierFlashFlood, CategoryFlashFlood.Tier())
	assert.Equal(t, TierDry, CategoryAllClear.Tier())
}
