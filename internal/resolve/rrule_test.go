package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annualcal/internal/model"
)

func TestRuleExpansion(t *testing.T) {
	r, err := Rule(model.NewFixedDayOfMonth(time.November, time.Thursday, model.Fourth), 2024, 2026)
	require.NoError(t, err)
	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "2024-11-28", all[0].Format("2006-01-02"))
	assert.Equal(t, "2025-11-27", all[1].Format("2006-01-02"))
	assert.Equal(t, "2026-11-26", all[2].Format("2006-01-02"))

	_, err = Rule(model.NewFixedDate(time.February, 29), 2024, 2026)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestCrossCheckAllShapes(t *testing.T) {
	weeks := []model.WeekInMonth{model.First, model.Second, model.Third, model.Fourth, model.Last}
	for m := time.January; m <= time.December; m++ {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			for _, w := range weeks {
				assert.NoError(t, CrossCheck(model.NewFixedDayOfMonth(m, wd, w), 1990, 2060))
			}
		}
		assert.NoError(t, CrossCheck(model.NewFixedDate(m, 28), 1990, 2060))
	}
}

func TestCrossCheckBadRange(t *testing.T) {
	assert.Error(t, CrossCheck(model.NewFixedDate(time.May, 1), 2030, 2020))
}
