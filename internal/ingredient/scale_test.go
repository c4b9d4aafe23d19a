package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"2", 2, true},
		{"1.5", 1.5, true},
		{"3/4", 0.75, true},
		{"1 1/2", 1.5, true},
		{"1½", 1.5, true},
		{"¼", 0.25, true},
		{"2-3", 2.5, true},
		{"1/0", 0, false},
		{"some", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseQuantity(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{0.5, "1/2"},
		{1.3333, "1 1/3"},
		{0.125, "1/8"},
		{2.75, "2 3/4"},
		{0.4, "0.4"},
		{2.999, "3"},
		{0, "0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatQuantity(tt.in), "FormatQuantity(%v)", tt.in)
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		line  string
		ratio float64
		want  string
	}{
		{"1 1/2 cups flour", 2, "3 cups flour"},
		{"2 eggs", 1.5, "3 eggs"},
		{"1 cup sugar", 0.5, "1/2 cup sugar"},
		{"1½ cups milk", 2, "3 cups milk"},
		{"2-3 cloves garlic", 2, "5 cloves garlic"},
		{"Salt to taste", 2, "Salt to taste"},
		{"2 eggs", 1, "2 eggs"},
		{"2 eggs", 0, "2 eggs"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Scale(tt.line, tt.ratio))
		})
	}
}

func TestScaleAllKeepsLength(t *testing.T) {
	lines := []string{"1 onion", "pinch of salt"}
	got := ScaleAll(lines, 2)
	assert.Equal(t, []string{"2 onion", "pinch of salt"}, got)
}
