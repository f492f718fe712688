package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ma", NormalizeCode("  MA "))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestSearchResponseNoResults(t *testing.T) {
	assert.True(t, SearchResponse{}.NoResults())
	assert.False(t, SearchResponse{Error: true}.NoResults())
	assert.False(t, SearchResponse{Results: []SearchResult{{Title: "Kirk"}}}.NoResults())
}
