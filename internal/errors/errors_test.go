package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Defaults(t *testing.T) {
	err := Newf("something failed").Build()

	assert.Equal(t, "something failed", err.Error())
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.False(t, err.Timestamp.IsZero())
}

func TestBuild_WithMetadata(t *testing.T) {
	err := Newf("fetch failed").
		Category(CategoryHTTP).
		Component("scraper").
		Context("status", 502).
		Build()

	assert.Equal(t, CategoryHTTP, err.Category)
	assert.Equal(t, "scraper", err.Component)
	assert.Equal(t, 502, err.Context["status"])
}

func TestEnhancedError_UnwrapsToSentinel(t *testing.T) {
	sentinel := NewStd("no reachable host")
	err := New(fmt.Errorf("probing: %w", sentinel)).
		Category(CategoryNetwork).
		Build()

	assert.True(t, Is(err, sentinel))
}

func TestEnhancedError_IsMatchesByCategory(t *testing.T) {
	a := Newf("a").Category(CategoryState).Build()
	b := Newf("b").Category(CategoryState).Build()
	c := Newf("c").Category(CategoryNetwork).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestAs_ExtractsEnhancedError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Newf("inner").Category(CategoryFileIO).Build())

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, CategoryFileIO, ee.Category)
}
