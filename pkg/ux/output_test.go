package ux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStyles_RenderPreservesContent verifies styling never swallows the
// message text, whatever the terminal capabilities are.
func TestStyles_RenderPreservesContent(t *testing.T) {
	cases := map[string]string{
		"title":   Styles.Title.Render("Deploying to cluster"),
		"success": Styles.Success.Render("all endpoints reachable"),
		"warning": Styles.Warning.Render("2 images missing"),
		"error":   Styles.Error.Render("apply failed"),
	}
	for name, rendered := range cases {
		require.NotEmpty(t, rendered, name)
	}
	assert.Contains(t, Styles.Title.Render("Deploying to cluster"), "Deploying to cluster")
	assert.Contains(t, Styles.SuccessBox.Render("done"), "done")
}

// TestStatusGlyphs verifies the status glyphs are distinct, so a
// scanning eye can tell outcome classes apart.
func TestStatusGlyphs(t *testing.T) {
	glyphs := []string{
		Styles.StatusOK.Value(),
		Styles.StatusWarning.Value(),
		Styles.StatusError.Value(),
		Styles.StatusPending.Value(),
	}
	seen := make(map[string]bool)
	for _, g := range glyphs {
		require.NotEmpty(t, g)
		assert.False(t, seen[g], "duplicate glyph %q", g)
		seen[g] = true
	}
}
