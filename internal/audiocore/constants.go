package audiocore

// PCM layout
const (
	// BytesPerSample is the serialized size of one signed 16-bit sample
	BytesPerSample = 2

	// BitDepth of every block handled by the pipeline
	BitDepth = 16

	// EncodingPCMS16LE names the only wire encoding
	EncodingPCMS16LE = "pcm_s16le"
)

// Supported sample rate range for capture sources
const (
	MinSampleRate = 8000
	MaxSampleRate = 48000
)

// SourceType identifies a sample source implementation
type SourceType int

const (
	// SourceTypeUnknown is the zero value
	SourceTypeUnknown SourceType = iota
	// SourceTypePattern generates a deterministic byte ramp
	SourceTypePattern
	// SourceTypeMalgo captures from a host audio device
	SourceTypeMalgo
	// SourceTypeWAV replays a WAV file at real-time pace
	SourceTypeWAV
)

// String returns the configuration name of the source type
func (t SourceType) String() string {
	switch t {
	case SourceTypePattern:
		return "pattern"
	case SourceTypeMalgo:
		return "malgo"
	case SourceTypeWAV:
		return "wav"
	default:
		return "unknown"
	}
}

// ParseSourceType maps a configuration name to a SourceType
func ParseSourceType(name string) SourceType {
	switch name {
	case "pattern":
		return SourceTypePattern
	case "malgo", "soundcard":
		return SourceTypeMalgo
	case "wav", "file":
		return SourceTypeWAV
	default:
		return SourceTypeUnknown
	}
}
