package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "?"},
		{"Ann", "Ann"},
		{"0123456789", "0123456789"},
		{"Alexandria Smith", "Alexandri…"},
		{"+15551234567", "4567"},
		{"+1 (555) 123-4567", "4567"},
		{"+4412345", "+4412345"},
		{"Zoë Ångström", "Zoë Ångst…"},
		{"   ", "?"},
		{"\t\n", "?"},
		{"  Sam  ", "Sam"},
		{"  0123456789  ", "0123456789"},
		{" Alexandria Smith ", "Alexandri…"},
		{" +15551234567", "4567"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortLabel(tt.in))
		})
	}
}

func TestGroupName(t *testing.T) {
	tests := []struct {
		name   string
		others []string
		want   string
	}{
		{"no other members", nil, "Group Chat"},
		{"one other", []string{"Ann Lee"}, "Ann"},
		{"two others", []string{"Ann Lee", "Bob Ray"}, "Ann & Bob"},
		{"three others", []string{"Ann", "Bob", "Cy"}, "Ann, Bob & 1 other"},
		{"four others", []string{"Ann", "Bob", "Cy", "Di"}, "Ann, Bob & 2 others"},
		{"missing names", []string{"", "Bob"}, "? & Bob"},
		{"unknown profile", []string{"Unknown", "Bob"}, "Unknown & Bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupName(tt.others))
		})
	}
}

func TestFormatPhoneDisplay(t *testing.T) {
	assert.Equal(t, "", FormatPhoneDisplay(""))
	assert.Equal(t, "(555) 123-4567", FormatPhoneDisplay("+15551234567"))
	assert.Equal(t, "+445551234567", FormatPhoneDisplay("+445551234567"))
	assert.Equal(t, "5551234567", FormatPhoneDisplay("5551234567"))
}

func TestUsernameToEmail(t *testing.T) {
	const domain = "users.franklink.ai"

	t.Run("Should pass emails through", func(t *testing.T) {
		assert.Equal(t, "a@b.co", UsernameToEmail("  a@b.co ", domain))
	})

	t.Run("Should prefix ten digit numbers with country code", func(t *testing.T) {
		assert.Equal(t, "15551234567@users.franklink.ai", UsernameToEmail("(555) 123-4567", domain))
	})

	t.Run("Should keep eleven digit numbers", func(t *testing.T) {
		assert.Equal(t, "15551234567@users.franklink.ai", UsernameToEmail("+1 555 123 4567", domain))
	})

	t.Run("Should return empty for blank input", func(t *testing.T) {
		assert.Equal(t, "", UsernameToEmail("   ", domain))
	})
}

func TestNormalizePhoneNumber(t *testing.T) {
	assert.Equal(t, "+15551234567", NormalizePhoneNumber("555-123-4567"))
	assert.Equal(t, "+445551234567", NormalizePhoneNumber("+44 555 123 4567"))
	assert.Equal(t, "12345", NormalizePhoneNumber(" 12345 "))
	assert.Equal(t, "", NormalizePhoneNumber(""))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "?", Initials(""))
	assert.Equal(t, "A", Initials("ann"))
	assert.Equal(t, "AL", Initials("ann marie lee"))
	assert.Equal(t, "ÉB", Initials("  élodie   bard "))
}

func TestAvatarColor(t *testing.T) {
	t.Run("Should be stable for the same id", func(t *testing.T) {
		assert.Equal(t, AvatarColor("user-123"), AvatarColor("user-123"))
	})

	t.Run("Should pick from the palette", func(t *testing.T) {
		assert.Contains(t, avatarPalette, AvatarColor("3f2c1a9e-0000-4000-8000-000000000000"))
	})

	t.Run("Should match the 32-bit hash", func(t *testing.T) {
		// "a" hashes to 97, 97 % 6 == 1
		assert.Equal(t, avatarPalette[1], AvatarColor("a"))
		assert.Equal(t, avatarPalette[0], AvatarColor(""))
	})
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Ann", User{ID: "u1", DisplayName: "Ann"}.Label())
	assert.Equal(t, "(555) 123-4567", User{ID: "u1", PhoneNumber: "15551234567"}.Label())
	assert.Equal(t, "Unknown", User{ID: "u1"}.Label())

	var nilProfile *Profile
	assert.Equal(t, "You", nilProfile.SelfLabel())
	assert.Equal(t, "You", (&Profile{ID: "me"}).SelfLabel())
	assert.Equal(t, "(555) 123-4567", (&Profile{PhoneNumber: "+15551234567"}).SelfLabel())
}
