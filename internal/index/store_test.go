package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMetadata(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "report.pdf", "report.pdf"},
		{"nil", nil, ""},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(9000000000), "9000000000"},
		{"float64", 3.5, "3.5"},
		{"float32", float32(0.25), "0.25"},
		{"slice", []int{1, 2}, "[1 2]"},
		{"map", map[string]int{"a": 1}, "map[a:1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeMetadata(map[string]any{"key": tt.value})
			assert.Equal(t, tt.want, got["key"])
		})
	}

	assert.NotNil(t, normalizeMetadata(nil))
	assert.Empty(t, normalizeMetadata(nil))
}

func TestValidateInsert(t *testing.T) {
	texts := []string{"a", "b"}
	vectors := [][]float32{{1}, {2}}

	assert.NoError(t, validateInsert(texts, vectors, nil, nil))
	assert.NoError(t, validateInsert(texts, vectors,
		[]map[string]any{{}, {}}, []string{"x", "y"}))

	assert.ErrorIs(t, validateInsert(texts, [][]float32{{1}}, nil, nil), ErrLengthMismatch)
	assert.ErrorIs(t, validateInsert(texts, vectors, []map[string]any{{}}, nil), ErrLengthMismatch)
	assert.ErrorIs(t, validateInsert(texts, vectors, nil, []string{"x"}), ErrLengthMismatch)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.7, clampScore(0.7))
	assert.Equal(t, 0.0, clampScore(-0.1))
	assert.Equal(t, 1.0, clampScore(1.00001))
	assert.Equal(t, 0.0, clampScore(math.NaN()))
	assert.Equal(t, 1.0, clampScore(1.0))
	assert.Equal(t, 0.0, clampScore(0.0))
}
