package questionnaire

import (
	"context"
	"time"
)

// Media is the output of a finished recording.
type Media struct {
	MIMEType string        `json:"mimeType"`
	Data     []byte        `json:"data"`
	Duration time.Duration `json:"duration"`
}

// Capture is an in-progress audio/video recording. Exactly one of Stop or
// Abort must be called to release the device.
type Capture interface {
	// Stop ends the recording, releases the device and returns what was
	// recorded.
	Stop() (Media, error)
	// Abort releases the device and discards the recording.
	Abort() error
}

// CaptureDevice starts recordings. Start may block on a permission prompt
// and should honour ctx.
type CaptureDevice interface {
	Start(ctx context.Context) (Capture, error)
}
