package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", normalizeEmail("  Alice@Example.COM "))
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		ok    bool
	}{
		{name: "valid", email: "alice@example.com", ok: true},
		{name: "empty", email: "", ok: false},
		{name: "no at sign", email: "alice.example.com", ok: false},
		{name: "no domain", email: "alice@", ok: false},
		{name: "spaces", email: "al ice@example.com", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateEmail(tt.email)
			if tt.ok {
				require.Empty(t, msg)
			} else {
				require.NotEmpty(t, msg)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{name: "valid", password: "Sup3rSecret", ok: true},
		{name: "too short", password: "Ab1x", ok: false},
		{name: "no uppercase", password: "sup3rsecret", ok: false},
		{name: "no lowercase", password: "SUP3RSECRET", ok: false},
		{name: "no digit", password: "SuperSecret", ok: false},
		{name: "single repeated rune", password: "aaaaaaaa", ok: false},
		{name: "too little variety", password: "Aa1Aa1Aa1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validatePassword(tt.password)
			if tt.ok {
				require.Empty(t, msg)
			} else {
				require.NotEmpty(t, msg)
			}
		})
	}
}
