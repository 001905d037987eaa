package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSuffix(t *testing.T) {
	a := WithSuffix("riverside-quarter")
	b := WithSuffix("riverside-quarter")
	assert.True(t, strings.HasPrefix(a, "riverside-quarter-"))
	assert.NotEqual(t, a, b)
}

func TestNewReferenceNumber(t *testing.T) {
	ref := NewReferenceNumber("Riverside Quarter")
	assert.True(t, strings.HasPrefix(ref, "RIVERSIDE-QUARTER-"))
	assert.Equal(t, ref, strings.ToUpper(ref))
}
