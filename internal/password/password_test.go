package password_test

import (
	"testing"

	"github.com/bytechute/chute/internal/password"
	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	pass, err := password.Generate()
	assert.NoError(t, err)
	assert.Len(t, pass, password.Length)
	assert.True(t, password.IsValid(pass))

	other, err := password.Generate()
	assert.NoError(t, err)
	assert.NotEqual(t, pass, other)
}

func TestIsValid(t *testing.T) {
	assert.True(t, password.IsValid("a1B2c3D4e5"))
	assert.False(t, password.IsValid(""))
	assert.False(t, password.IsValid("has space"))
	assert.False(t, password.IsValid("dash-dash"))
}
