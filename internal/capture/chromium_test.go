package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	opts := CaptureOptions{URL: "http://127.0.0.1:8080/preview", OutputPath: "preview.png"}
	require.NoError(t, opts.normalize())

	assert.Equal(t, DefaultWidth, opts.Width)
	assert.Equal(t, DefaultHeight, opts.Height)
	assert.Equal(t, time.Duration(DefaultTimeoutSec)*time.Second, opts.Timeout)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	opts := CaptureOptions{HTML: "<p>hi</p>", OutputPath: "preview.png", Width: 320, Height: 640, Timeout: time.Second}
	require.NoError(t, opts.normalize())

	assert.Equal(t, 320, opts.Width)
	assert.Equal(t, 640, opts.Height)
	assert.Equal(t, time.Second, opts.Timeout)
}

func TestCapturePreviewPNGRequiresTargetAndOutput(t *testing.T) {
	ctx := context.Background()

	err := CapturePreviewPNG(ctx, CaptureOptions{OutputPath: "preview.png"})
	assert.ErrorContains(t, err, "URL or HTML is required")

	err = CapturePreviewPNG(ctx, CaptureOptions{URL: "http://127.0.0.1:8080/preview"})
	assert.ErrorContains(t, err, "OutputPath is required")
}
