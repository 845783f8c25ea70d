package audiocore

import (
	"github.com/tphakala/pendant-go/internal/errors"
)

// Component identifier for audiocore errors
const ComponentAudioCore = "audiocore"

var (
	// ErrSourceClosed is returned by Capture after the source was closed
	ErrSourceClosed = errors.Newf("audio source closed").
			Component(ComponentAudioCore).
			Category(errors.CategoryAudioSource).
			Context("resource", "audio_source").
			Build()

	// ErrFormatMismatch is returned when Capture is asked for a rate or channel
	// count the source was not opened with
	ErrFormatMismatch = errors.Newf("requested audio format does not match source").
				Component(ComponentAudioCore).
				Category(errors.CategoryValidation).
				Context("resource", "audio_format").
				Build()

	// ErrInvalidAudioFormat is returned when an AudioFormat fails validation
	ErrInvalidAudioFormat = errors.Newf("invalid audio format").
				Component(ComponentAudioCore).
				Category(errors.CategoryValidation).
				Context("resource", "audio_format").
				Build()

	// ErrCaptureTimeout is returned when a source produced no data in time
	ErrCaptureTimeout = errors.Newf("audio capture timeout").
				Component(ComponentAudioCore).
				Category(errors.CategoryTimeout).
				Context("operation", "capture").
				Build()

	// ErrNotSubscribed is returned by Notify when no client has enabled notifications
	ErrNotSubscribed = errors.Newf("no subscribed client").
				Component(ComponentAudioCore).
				Category(errors.CategoryRadio).
				Context("operation", "notify").
				Build()

	// ErrPayloadTooLarge is returned by Notify when the payload exceeds MTU minus overhead
	ErrPayloadTooLarge = errors.Newf("payload exceeds notification size").
				Component(ComponentAudioCore).
				Category(errors.CategoryRadio).
				Context("operation", "notify").
				Build()
)
