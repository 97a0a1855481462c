package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopSegmentsByTimeSave(t *testing.T) {
	segments := []SegmentSummary{
		{Key: "Ceres", Samples: 3, Best: 120, Median: 130},
		{Key: "Boss", Samples: 2, Best: 20, Median: 60},
		{Key: "Escape"},
		{Key: "Boss1", Samples: 1, Best: 20, Median: 20},
	}
	assert.Equal(t, []string{"Boss", "Ceres", "Boss1"}, TopSegmentsByTimeSave(segments, 5))
	assert.Nil(t, TopSegmentsByTimeSave(segments, 0))
}
