package corroborate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marquee-data/marquee-cli/internal/model"
)

func TestValuesMatchNumeric(t *testing.T) {
	tests := []struct {
		name       string
		proposed   any
		observed   any
		match      bool
		comparable bool
	}{
		{"exact", 20000000.0, 20000000.0, true, true},
		{"within tolerance", 20000000.0, 19500000.0, true, true},
		{"at tolerance edge", 100.0, 90.0, true, true},
		{"beyond tolerance", 20000000.0, 15000000.0, false, true},
		{"int vs float", 42, 42.0, true, true},
		{"int64", int64(1000), 1050.0, true, true},
		{"json number", json.Number("20000000"), 20500000.0, true, true},
		{"both zero", 0.0, 0.0, true, true},
		{"zero vs nonzero", 0.0, 5.0, false, true},
		{"negative pair", -100.0, -105.0, true, true},
		{"nil observed", 20.0, nil, false, false},
		{"nil proposed", nil, 20.0, false, false},
		{"number vs string", 20.0, "twenty", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, comparable := ValuesMatch(tt.proposed, tt.observed)
			assert.Equal(t, tt.match, match, "match")
			assert.Equal(t, tt.comparable, comparable, "comparable")
		})
	}
}

func TestValuesMatchString(t *testing.T) {
	match, comparable := ValuesMatch("Broadway Theatre", "  broadway theatre ")
	assert.True(t, match)
	assert.True(t, comparable)

	match, comparable = ValuesMatch("Broadway Theatre", "Shubert Theatre")
	assert.False(t, match)
	assert.True(t, comparable)
}

func TestValuesMatchBool(t *testing.T) {
	match, comparable := ValuesMatch(true, true)
	assert.True(t, match)
	assert.True(t, comparable)

	match, comparable = ValuesMatch(true, false)
	assert.False(t, match)
	assert.True(t, comparable)

	_, comparable = ValuesMatch(true, "yes")
	assert.False(t, comparable)
}

func TestValuesMatchRange(t *testing.T) {
	base := model.Range{Low: 60, High: 80}

	tests := []struct {
		name     string
		observed any
		match    bool
	}{
		{"identical", model.Range{Low: 60, High: 80}, true},
		{"both ends close", model.Range{Low: 58, High: 82}, true},
		{"one end far", model.Range{Low: 60, High: 95}, false},
		{"pointer", &model.Range{Low: 61, High: 79}, true},
		{"two-element slice", []float64{60, 80}, true},
		{"decoded json object", map[string]any{"low": 60.0, "high": 80.0}, true},
		{"decoded json array", []any{60.0, 80.0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, comparable := ValuesMatch(base, tt.observed)
			assert.True(t, comparable)
			assert.Equal(t, tt.match, match)
		})
	}

	_, comparable := ValuesMatch(base, 70.0)
	assert.False(t, comparable, "range vs scalar is not comparable")
}
