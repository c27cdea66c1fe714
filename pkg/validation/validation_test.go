package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"supervisor@playdrop.app",
		"a.b+tag@studio.example.com",
		"USER@DOMAIN.CO",
	}
	invalid := []string{
		"",
		"no-at-sign",
		"@missing.local",
		"user@",
		"user@nodot",
	}

	for _, email := range valid {
		assert.True(t, ValidateEmail(email), "expected %q to be valid", email)
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), "expected %q to be invalid", email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("Str0ng!pass"))
	assert.False(t, ValidatePassword("short1!"))
	assert.False(t, ValidatePassword("alllowercase1!"))
	assert.False(t, ValidatePassword("ALLUPPERCASE1!"))
	assert.False(t, ValidatePassword("NoNumbers!!"))
	assert.False(t, ValidatePassword("NoSpecial11"))
}

func TestValidateUsername(t *testing.T) {
	assert.True(t, ValidateUsername("music_sup-01"))
	assert.False(t, ValidateUsername("ab"))
	assert.False(t, ValidateUsername("has spaces"))
	assert.False(t, ValidateUsername("emoji🎵"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "clean", SanitizeString("  clean  "))
	assert.Equal(t, "ab", SanitizeString("a\x00b"))
}
