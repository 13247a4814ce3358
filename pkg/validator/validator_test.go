package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorFirstErrorWins(t *testing.T) {
	v := New()
	assert.True(t, v.Valid())

	v.Check(false, "email", "must be provided")
	v.Check(false, "email", "must be valid")
	v.Check(true, "name", "never added")

	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{"email": "must be provided"}, v.Errors)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("driver@fleet.pe", EmailRX))
	assert.False(t, Matches("driver@", EmailRX))
	assert.True(t, Matches("20123456789", RUCRX))
	assert.False(t, Matches("2012345678", RUCRX))
	assert.True(t, Matches("+51 987 654 321", PhoneRX))
}

func TestPermittedValue(t *testing.T) {
	assert.True(t, PermittedValue("DRIVER", "DRIVER", "SUPERVISOR"))
	assert.False(t, PermittedValue("ADMIN", "DRIVER", "SUPERVISOR"))
	assert.True(t, PermittedValue(3, 1, 2, 3))
}

func TestChars(t *testing.T) {
	assert.False(t, NotBlank("   "))
	assert.True(t, NotBlank(" a "))
	assert.True(t, MaxChars("ñandú", 5))
	assert.False(t, MinChars("abc", 8))
}
