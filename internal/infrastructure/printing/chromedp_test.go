package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteHTML(t *testing.T) {
	wrapped := completeHTML(&RenderRequest{HTML: "<p>hi</p>", Title: "A & B"})
	assert.Equal(t,
		`<!DOCTYPE html><html><head><meta charset="UTF-8"><title>A &amp; B</title></head><body><p>hi</p></body></html>`,
		wrapped)

	full := "<!DOCTYPE html><html><body>x</body></html>"
	assert.Equal(t, full, completeHTML(&RenderRequest{HTML: full}))
}

func TestPrintParams(t *testing.T) {
	p := printParams(&RenderRequest{HTML: "x"})
	assert.InDelta(t, 8.27, p.PaperWidth, 0.01)
	assert.InDelta(t, 11.69, p.PaperHeight, 0.01)
	assert.True(t, p.PrintBackground)
	assert.False(t, p.Landscape)

	assert.True(t, printParams(&RenderRequest{HTML: "x", Landscape: true}).Landscape)
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{})
	defer r.Close()

	_, err := r.Render(context.Background(), &RenderRequest{HTML: "  "})
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)

	_, err = r.Render(context.Background(), nil)
	assert.Error(t, err)
}
