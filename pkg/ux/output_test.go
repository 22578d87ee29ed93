// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for terminal output helpers

package ux

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout redirects stdout for the duration of fn.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = old

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func TestSetPlain_Toggles(t *testing.T) {
	t.Cleanup(func() { SetPlain(false) })

	SetPlain(true)
	assert.True(t, Plain())
	SetPlain(false)
	assert.False(t, Plain())
}

func TestIcon_RenderPlain(t *testing.T) {
	SetPlain(true)
	t.Cleanup(func() { SetPlain(false) })

	assert.Equal(t, "✓", IconSuccess.Render())
	assert.Equal(t, "✗", IconError.Render())
	assert.Equal(t, "⊘", IconSkipped.Render())
	assert.Equal(t, "→", IconArrow.Render())
}

func TestIcon_RenderStyledContainsGlyph(t *testing.T) {
	SetPlain(false)
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconSkipped, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestSuccess_PlainFormat(t *testing.T) {
	SetPlain(true)
	t.Cleanup(func() { SetPlain(false) })

	out := captureStdout(t, func() { Success("workflow finished") })
	assert.Equal(t, "OK: workflow finished\n", out)
}

func TestTitleAndInfo_PlainPassThrough(t *testing.T) {
	SetPlain(true)
	t.Cleanup(func() { SetPlain(false) })

	out := captureStdout(t, func() {
		Title("Workflow")
		Info("3 nodes")
	})
	assert.Equal(t, "Workflow\n3 nodes\n", out)
}

func TestMuted_SilentInPlainMode(t *testing.T) {
	SetPlain(true)
	t.Cleanup(func() { SetPlain(false) })

	out := captureStdout(t, func() { Muted("details") })
	assert.Empty(t, out)
}

func TestBox_PlainFormat(t *testing.T) {
	SetPlain(true)
	t.Cleanup(func() { SetPlain(false) })

	out := captureStdout(t, func() { Box("Result", "the answer") })
	assert.Equal(t, "Result: the answer\n", out)
}

func TestBox_StyledContainsContent(t *testing.T) {
	SetPlain(false)
	out := captureStdout(t, func() { Box("Result", "the answer") })
	assert.Contains(t, out, "Result")
	assert.Contains(t, out, "the answer")
}
