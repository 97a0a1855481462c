package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Segment", "Best", "Runs"}
	rows := [][]string{
		{"Ceres", "2m 0s", "12"},
		{"Boss1", "20s", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	require.Len(t, lines, 3)
	assert.Equal(t, "Segment  Best Runs", lines[0])
	assert.Equal(t, "Ceres   2m 0s   12", lines[1])
	assert.Equal(t, "Boss1     20s    3", lines[2])
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Segment", "Runs"}, [][]string{{"城", "1"}}, map[int]bool{1: true})
	require.Len(t, lines, 2)
	assert.Equal(t, "城         1", lines[1], "wide rune padded by display width")
}
