package pdf

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintParams(t *testing.T) {
	p := PrintParams()

	assert.InDelta(t, 8.27, p.PaperWidth, 0.001)
	assert.InDelta(t, 11.69, p.PaperHeight, 0.001)
	assert.True(t, p.PrintBackground)
	assert.True(t, p.DisplayHeaderFooter)
	assert.InDelta(t, 25/25.4, p.MarginTop, 1e-9)
	assert.InDelta(t, 22/25.4, p.MarginBottom, 1e-9)
	assert.InDelta(t, 15/25.4, p.MarginLeft, 1e-9)
	assert.InDelta(t, 15/25.4, p.MarginRight, 1e-9)
	assert.Contains(t, p.FooterTemplate, "pageNumber")
}

func TestRenderEmpty(t *testing.T) {
	_, err := NewRenderer("", nil).Render(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

// Needs a Chrome binary; set CHROME_PDF_TEST=1 to run.
func TestRenderChrome(t *testing.T) {
	if os.Getenv("CHROME_PDF_TEST") == "" {
		t.Skip("CHROME_PDF_TEST not set")
	}
	out, err := NewRenderer(os.Getenv("CHROME_REMOTE_URL"), nil).Render(context.Background(), "<html><body><h1>Report</h1></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}
