// Package audiocore defines the audio side of the pendant stream: the sample
// source and radio notifier contracts shared by the pipeline, plus the PCM
// helpers that turn captured blocks into wire bytes.
//
// # Data Flow
//
//	SampleSource -> capture task -> streambuf.Buffer -> transmit task -> RadioNotifier
//
// Samples are signed 16-bit. They live in host order inside an Audio Block and
// are serialized little-endian for the wire. Stereo blocks are interleaved L,R.
//
// # Concurrency
//
// A SampleSource is driven by a single capture goroutine and need not be safe
// for concurrent Capture calls. A RadioNotifier receives SetPayload and Notify
// from the transmit goroutine while its attach and detach callbacks fire from
// the notifier's own I/O goroutines, so implementations guard their state.
package audiocore
