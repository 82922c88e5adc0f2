package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKiwoomNumericParsing(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expInt   int64
		expFloat float64
		expAbs   float64
	}{
		{"plus signed", "+73400", 73400, 73400, 73400},
		{"minus signed", "-1200", -1200, -1200, 1200},
		{"unsigned", "250000", 250000, 250000, 250000},
		{"whitespace", " +500 ", 500, 500, 500},
		{"empty", "", 0, 0, 0},
		{"garbage", "n/a", 0, 0, 0},
		{"decimal", "+70123.45", 70123, 70123.45, 70123.45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expInt, KiwoomInt(tt.input))
			assert.Equal(t, tt.expFloat, KiwoomFloat(tt.input))
			assert.Equal(t, tt.expAbs, KiwoomAbsPrice(tt.input))
		})
	}
}
