package share

// Observer receives lifecycle events. Every method is called from the
// controller's control goroutine, one at a time, and must return
// promptly. Calling HostTornDown or Close from a callback deadlocks.
type Observer interface {
	OnHandshakeStarted()
	OnHandshakeFailed(kind ErrorKind, message string)
	OnSessionActive(viewLink string)
	OnFirstDataReceived()
	OnRemainingTimeChanged(seconds int)
	OnStopped(reason StopReason)
}

// PushObserver is implemented by observers that want every push-cycle
// outcome. err is nil for a successful push.
type PushObserver interface {
	OnPushResult(err error)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnHandshakeStarted() {}
func (NopObserver) OnHandshakeFailed(ErrorKind, string) {}
func (NopObserver) OnSessionActive(string) {}
func (NopObserver) OnFirstDataReceived() {}
func (NopObserver) OnRemainingTimeChanged(int) {}
func (NopObserver) OnStopped(StopReason) {}
