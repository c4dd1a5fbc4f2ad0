package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMessagePreviewShortBodyUnchanged(t *testing.T) {
	assert.Equal(t, "hello", messagePreview("hello"))
}

func TestMessagePreviewTruncatesLongBody(t *testing.T) {
	got := messagePreview(strings.Repeat("a", 200))

	assert.Len(t, got, previewLen)
}

func TestMessagePreviewKeepsMultibyteRunesIntact(t *testing.T) {
	got := messagePreview(strings.Repeat("界", 100))

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, previewLen, utf8.RuneCountInString(got))
}

func TestMessagePreviewDoesNotSplitRuneAtBoundary(t *testing.T) {
	body := strings.Repeat("a", previewLen-1) + "世界"

	got := messagePreview(body)

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "世"))
	assert.Equal(t, previewLen, utf8.RuneCountInString(got))
}
