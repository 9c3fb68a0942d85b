package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge/llm"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, "gpt-4o", s.Model)
	assert.Equal(t, 4096, s.MaxTokens)
	assert.InDelta(t, 0.7, s.Temperature, 0.001)
	assert.Equal(t, DefaultTimeout, s.Timeout)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storyforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"provider: claude\nmax_tokens: 2048\ntimeout: 45s\n"), 0600))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude", s.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", s.Model, "default model follows provider")
	assert.Equal(t, 2048, s.MaxTokens)
	assert.Equal(t, 45*time.Second, s.Timeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", s.Provider)
}

func TestTimeoutFor(t *testing.T) {
	s := Settings{Timeout: time.Minute, ChapterGenTimeout: 10 * time.Minute}

	assert.Equal(t, time.Minute, s.TimeoutFor(llm.OpenAI, llm.TypeCharacter))
	assert.Equal(t, 10*time.Minute, s.TimeoutFor(llm.OpenAI, llm.TypeChapter))
	assert.Equal(t, 10*time.Minute, s.TimeoutFor(llm.Claude, llm.TypeRevision))
	assert.Equal(t, DefaultLocalTimeout, s.TimeoutFor(llm.Local, llm.TypeChapter))
}

func TestKeystoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ks, err := OpenKeystore(dir)
	require.NoError(t, err)

	require.NoError(t, ks.Set("openai", "sk-test-1234567890"))

	got, err := ks.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234567890", got)

	// The file on disk must not contain the plaintext key.
	raw, err := os.ReadFile(filepath.Join(dir, "keystore.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-test-1234567890")

	// A fresh handle over the same dir reuses the secret file.
	ks2, err := OpenKeystore(dir)
	require.NoError(t, err)
	got, err = ks2.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234567890", got)
}

func TestKeystoreGetMissing(t *testing.T) {
	ks, err := OpenKeystore(t.TempDir())
	require.NoError(t, err)

	got, err := ks.Get("gemini")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeystoreDelete(t *testing.T) {
	ks, err := OpenKeystore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ks.Set("grok", "xai-key"))
	require.NoError(t, ks.Delete("grok"))

	got, err := ks.Get("grok")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAPIKeyForPrefersEnv(t *testing.T) {
	t.Setenv("XAI_API_KEY", "from-env")

	ks, err := OpenKeystore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ks.Set("grok", "from-store"))

	got, err := APIKeyFor(llm.Grok, ks)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestAPIKeyForLocalNeedsNone(t *testing.T) {
	got, err := APIKeyFor(llm.Local, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "sk-a...wxyz", MaskKey("sk-abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "********", MaskKey("12345678"))
	assert.Equal(t, "", MaskKey(""))
}
