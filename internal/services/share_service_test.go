package services

import (
	"strings"
	"testing"
	"time"

	"github.com/playdrop/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlug(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		slug, err := generateSlug(12)
		require.NoError(t, err)
		assert.Len(t, slug, 12)
		for _, ch := range slug {
			assert.True(t, strings.ContainsRune(slugAlphabet, ch), "slug %q contains %q outside the alphabet", slug, ch)
		}
		assert.False(t, seen[slug], "slug %q repeated within 50 draws", slug)
		seen[slug] = true
	}
}

func TestGenerateSlugDefaultLength(t *testing.T) {
	slug, err := generateSlug(0)
	require.NoError(t, err)
	assert.Len(t, slug, 12)
}

func TestGateForOrder(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		link models.ShareLink
		want GateRequirement
	}{
		{
			name: "revoked wins over everything",
			link: models.ShareLink{IsActive: false, PasswordHash: "x", RequireEmail: true, ExpiresAt: &past},
			want: GateInactive,
		},
		{
			name: "expiry checked before password",
			link: models.ShareLink{IsActive: true, PasswordHash: "x", ExpiresAt: &past},
			want: GateExpired,
		},
		{
			name: "password checked before email prompt",
			link: models.ShareLink{IsActive: true, PasswordHash: "x", RequireEmail: true},
			want: GateNeedsPassword,
		},
		{
			name: "email prompt",
			link: models.ShareLink{IsActive: true, RequireEmail: true},
			want: GateNeedsEmail,
		},
		{
			name: "preset recipient skips the email prompt",
			link: models.ShareLink{IsActive: true, RequireEmail: true, RecipientEmail: "a@b.co"},
			want: GateOpen,
		},
		{
			name: "preset recipient alone does not gate",
			link: models.ShareLink{IsActive: true, RecipientEmail: "a@b.co"},
			want: GateOpen,
		},
		{
			name: "open link",
			link: models.ShareLink{IsActive: true},
			want: GateOpen,
		},
		{
			name: "future expiry does not gate",
			link: models.ShareLink{IsActive: true, ExpiresAt: &future},
			want: GateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GateFor(&tt.link, now))
		})
	}
}

func TestShareLinkExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	link := models.ShareLink{IsActive: true}
	assert.False(t, link.IsExpired(now), "no expiry means never expired")

	link.ExpiresAt = &past
	assert.True(t, link.IsExpired(now))
}

func TestGenerateVerificationCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateVerificationCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, ch := range code {
			assert.True(t, ch >= '0' && ch <= '9')
		}
	}
}
