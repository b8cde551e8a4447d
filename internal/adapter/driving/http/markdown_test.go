package httphandler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	httphandler "github.com/ericfisherdev/autopatch/internal/adapter/driving/http"
)

func TestRenderMarkdown(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", httphandler.RenderMarkdown(""))
	})

	t.Run("basic formatting", func(t *testing.T) {
		out := httphandler.RenderMarkdown("**bold** and *italic*")
		assert.Contains(t, out, "<strong>bold</strong>")
		assert.Contains(t, out, "<em>italic</em>")
	})

	t.Run("script tags are stripped", func(t *testing.T) {
		out := httphandler.RenderMarkdown("hello <script>alert('x')</script> world")
		assert.NotContains(t, out, "<script>")
		assert.NotContains(t, out, "alert")
		assert.Contains(t, out, "hello")
	})

	t.Run("links survive sanitization", func(t *testing.T) {
		out := httphandler.RenderMarkdown("[report](https://example.com/report)")
		assert.Contains(t, out, `href="https://example.com/report"`)
	})
}
