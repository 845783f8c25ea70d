package pipeline

// Recorder receives stream events for metrics export
type Recorder interface {
	RecordBlockCaptured(bytes int)
	RecordCaptureFault()
	RecordDropped(stage string, bytes int)
	RecordNotification(bytes int)
	RecordNotifyFault()
	SetBufferLevel(bytes int)
}

// Drop stages passed to Recorder.RecordDropped
const (
	StageCapture  = "capture"
	StageTransmit = "transmit"
)

type nopRecorder struct{}

func (nopRecorder) RecordBlockCaptured(int)   {}
func (nopRecorder) RecordCaptureFault()       {}
func (nopRecorder) RecordDropped(string, int) {}
func (nopRecorder) RecordNotification(int)    {}
func (nopRecorder) RecordNotifyFault()        {}
func (nopRecorder) SetBufferLevel(int)        {}
