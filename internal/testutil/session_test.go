package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionGenerator(t *testing.T) {
	gen := NewFixedSessionGenerator("s-1")
	assert.Equal(t, "s-1", gen.Generate())
	assert.Equal(t, "s-1", gen.Generate())
}

func TestFixedSessionGenerator_Default(t *testing.T) {
	assert.Equal(t, DefaultSession, NewFixedSessionGenerator("").Generate())
}
