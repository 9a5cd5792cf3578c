package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kycbridge/pkg/domain-errors"
)

func TestNewVerificationRequest(t *testing.T) {
	t.Run("trims and keeps handle verbatim when already clean", func(t *testing.T) {
		req, err := NewVerificationRequest(" Ana ", "Silva", "+5511999990000")
		require.NoError(t, err)
		assert.Equal(t, "Ana", req.FirstName)
		assert.Equal(t, "Silva", req.LastName)
		assert.Equal(t, "+5511999990000", req.RecipientHandle)
	})

	t.Run("strips formatting separators", func(t *testing.T) {
		req, err := NewVerificationRequest("Ana", "Silva", "+55 (11) 99999-0000")
		require.NoError(t, err)
		assert.Equal(t, "+5511999990000", req.RecipientHandle)
	})

	cases := []struct {
		name, first, last, phone string
	}{
		{"missing first name", "", "Silva", "+5511999990000"},
		{"missing last name", "Ana", " ", "+5511999990000"},
		{"missing phone", "Ana", "Silva", ""},
		{"letters in phone", "Ana", "Silva", "+55abc"},
		{"too short", "Ana", "Silva", "12345"},
		{"plus in the middle", "Ana", "Silva", "55+11999990000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVerificationRequest(tc.first, tc.last, tc.phone)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}
