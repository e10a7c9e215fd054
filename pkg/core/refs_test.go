package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferencedNames(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{"none", "1 + 1", []string{}},
		{"table marker", "${TABLE}.id", []string{"TABLE"}},
		{"dedup in order", "${b} + ${a} + ${b} + ${TABLE}.x", []string{"b", "a", "TABLE"}},
		{"qualified", "${orders.total} / ${shop.orders.count}", []string{"orders.total", "shop.orders.count"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReferencedNames(tt.template))
		})
	}
}

func TestSplitReference(t *testing.T) {
	tests := []struct {
		ref       string
		wantView  string
		wantField string
	}{
		{"total", "", "total"},
		{"orders.total", "orders", "total"},
		{"shop.orders.total", "orders", "total"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			view, field := SplitReference(tt.ref)
			assert.Equal(t, tt.wantView, view)
			assert.Equal(t, tt.wantField, field)
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	inputs := []string{
		"  SUM(x)  ",
		"CASE\n  WHEN a    THEN b\nEND",
		"a\r\n\tb",
		"already normal",
		"",
	}
	for _, in := range inputs {
		once := NormalizeWhitespace(in)
		assert.Equal(t, once, NormalizeWhitespace(once), "normalizing %q twice changed it", in)
		assert.NotContains(t, once, "  ")
	}
	assert.Equal(t, "CASE WHEN a THEN b END", NormalizeWhitespace("CASE\n  WHEN a    THEN b\nEND"))
}

func TestLowercaseReferences(t *testing.T) {
	assert.Equal(t, "${TABLE}.ID + ${orders.total}", lowercaseReferences("${TABLE}.ID + ${Orders.Total}"))
}

func TestHasTemplateLogic(t *testing.T) {
	assert.True(t, HasTemplateLogic("{% if x %}a{% endif %}"))
	assert.False(t, HasTemplateLogic("${TABLE}.a"))
}
