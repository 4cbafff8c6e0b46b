package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  string
	}{
		{name: "zero returns plural", count: 0, want: "metrics"},
		{name: "one returns singular", count: 1, want: "metric"},
		{name: "two returns plural", count: 2, want: "metrics"},
		{name: "negative returns plural", count: -1, want: "metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pluralize(tt.count, "metric", "metrics"))
		})
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, "1 boot", Count(1, "boot", "boots"))
	assert.Equal(t, "3 boots", Count(3, "boot", "boots"))
}
