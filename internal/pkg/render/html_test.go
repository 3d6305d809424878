package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_HTML(t *testing.T) {
	r := New()

	out, err := r.HTML("## Section\n\nSome **bold** text.\n\n- one\n- two")
	require.NoError(t, err)
	assert.Contains(t, out, "<h2")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<li>one</li>")
}

func TestRenderer_HTMLSanitizes(t *testing.T) {
	r := New()

	out, err := r.HTML("<p onclick=\"x()\">hi</p>\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "hi")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<script")
}
