package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizer_Sanitize(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"password", "open with password=hunter22", "open with password=***"},
		{"token", "sync token=abc123xyz", "sync token=***"},
		{"bearer", "Authorization: Bearer eyJhbGc", "Authorization: bearer ***"},
		{"windows home", `space at C:\Users\ning\Notes`, `space at ***:\Users\***\Notes`},
		{"linux home", "loaded /home/ning/notes/a.typ", "loaded /home/***/notes/a.typ"},
		{"mac home", "loaded /Users/ning/notes", "loaded /Users/***/notes"},
		{"email", "profile updated for ada.l@example.co.uk", "profile updated for ***@example.co.uk"},
		{"workspace outside home", "loaded /srv/notes/a.typ", "loaded /srv/notes/a.typ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Sanitize(tt.input))
		})
	}
}

func TestSanitizer_SanitizeArgs(t *testing.T) {
	s := NewSanitizer()

	args := []any{
		"space", "Notes",
		"api_token", "verylongsecret",
		"path", "/home/ning/notes",
		"err", errors.New("open /home/ning/notes/x: permission denied"),
		"count", 3,
		"user_email", "ada@example.com",
	}
	got := s.SanitizeArgs(args)

	require.Len(t, got, len(args))
	assert.Equal(t, "Notes", got[1])
	assert.Equal(t, "v***t", got[3])
	assert.Equal(t, "/home/***/notes", got[5])
	assert.Equal(t, "open /home/***/notes/x: permission denied", got[7])
	assert.Equal(t, 3, got[9])
	assert.Equal(t, "a***m", got[11])

	// input is left untouched
	assert.Equal(t, "verylongsecret", args[3])
	assert.Empty(t, s.SanitizeArgs(nil))
}

func TestSanitizer_AddRule(t *testing.T) {
	s := NewSanitizer()

	require.NoError(t, s.AddRule(`share=[A-Za-z0-9]+`, "share=***"))
	assert.Equal(t, "link share=***", s.Sanitize("link share=Ab12Cd"))

	assert.Error(t, s.AddRule(`(unclosed`, "x"))
}

func TestMaskValue(t *testing.T) {
	tests := map[string]string{
		"ab":               "***",
		"abc":              "a***",
		"abcdefgh":         "a***",
		"abcdefghi":        "a***i",
		"verylongpassword": "v***d",
	}
	for in, want := range tests {
		assert.Equal(t, want, maskValue(in), in)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"password", "user_password", "PASSWORD", "token", "api_key", "Authorization"} {
		assert.True(t, isSensitiveKey(key), key)
	}
	for _, key := range []string{"space", "path", "file", "op"} {
		assert.False(t, isSensitiveKey(key), key)
	}
}
