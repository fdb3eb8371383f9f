package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice"))
	assert.NoError(t, ValidateUsername("Student_42"))
	assert.Error(t, ValidateUsername("ab"), "too short")
	assert.Error(t, ValidateUsername("this_name_is_way_too_long_ok"), "too long")
	assert.Error(t, ValidateUsername("has space"))
	assert.Error(t, ValidateUsername("émile"))
	assert.Error(t, ValidateUsername(""))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret1"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(""))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.NoError(t, ValidateAmount(1000))
	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-100))
	assert.Error(t, ValidateAmount(10_000_000))
}
