package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAffirmative(t *testing.T) {
	for _, text := range []string{"yes", "Yes", " SI ", "sí", "¡Sí!", "ok", "dale", "confirm"} {
		assert.True(t, IsAffirmative(text), "%q should read as yes", text)
	}
	for _, text := range []string{"no", "maybe", "what?", "", "yes please save it"} {
		assert.False(t, IsAffirmative(text), "%q should not read as yes", text)
	}
}

func TestIsNegative(t *testing.T) {
	for _, text := range []string{"no", "No.", "nope", "cancelar", "N"} {
		assert.True(t, IsNegative(text), "%q should read as no", text)
	}
	for _, text := range []string{"yes", "not sure", ""} {
		assert.False(t, IsNegative(text), "%q should not read as no", text)
	}
}
