package localization_test

import (
	"cherrypick/client/internal/localization"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizer_Embedded(t *testing.T) {
	l, err := localization.NewLocalizer()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"en", "ko"}, l.Languages())
	assert.Equal(t, "오류", l.GetString("ko", localization.KeyErrorTitle))
	assert.Equal(t, "메시지 전송에 실패했습니다.", l.GetString("ko", localization.KeySendFailed))
	assert.Equal(t, "Failed to send the message.", l.GetString("en", localization.KeySendFailed))
}

func TestLocalizer_Fallbacks(t *testing.T) {
	l, err := localization.NewLocalizer()
	require.NoError(t, err)

	// ko has no disconnected status line
	assert.Equal(t, "Offline, messages are sent over HTTP", l.GetString("ko", localization.KeyDisconnected))
	assert.Equal(t, "Error", l.GetString("fr", localization.KeyErrorTitle))
	assert.Equal(t, "no.such.key", l.GetString("ko", "no.such.key"))
}

func TestNewLocalizerFS(t *testing.T) {
	fsys := fstest.MapFS{
		"l/en.json":   {Data: []byte(`{"greeting":"hi"}`)},
		"l/notes.txt": {Data: []byte("ignored")},
	}

	l, err := localization.NewLocalizerFS(fsys, "l")
	require.NoError(t, err)
	assert.Equal(t, "hi", l.GetString("en", "greeting"))

	_, err = localization.NewLocalizerFS(fstest.MapFS{"l/en.json": {Data: []byte("{")}}, "l")
	assert.Error(t, err)

	_, err = localization.NewLocalizerFS(fsys, "missing")
	assert.Error(t, err)
}
