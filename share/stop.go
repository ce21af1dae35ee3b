package share

// UserRequestedStop asks the controller to stop the current share. It
// returns once the request is queued. While a handshake is pending the
// handshake is canceled and reported as KindCanceled.
func (c *Controller) UserRequestedStop() error {
	return c.post(func() { c.stop(StopUserRequested) })
}

// HostTornDown releases everything without notifying the observer and
// returns once the release is complete. It must not be called from an
// Observer callback.
func (c *Controller) HostTornDown() {
	done := make(chan struct{})
	err := c.post(func() {
		defer close(done)
		c.stop(StopHostTornDown)
	})
	if err != nil {
		return
	}
	select {
	case <-done:
	case <-c.closed:
	}
}

// Close tears the share down and stops the control loop. Later calls to
// StartSharing or UserRequestedStop return ErrClosed.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.HostTornDown()
		close(c.closed)
		<-c.loopDone
	})
	return nil
}

// stop is the single path that ends a share, whatever triggered it. It
// runs on the control loop, so concurrent triggers are serialized and
// only the first one for a session does anything.
func (c *Controller) stop(reason StopReason) {
	switch c.currentState() {
	case StateIdle, StateStopping:
		return
	case StateHandshaking:
		c.cancelHandshake(reason)
		return
	}

	sess := c.active
	if sess == nil {
		c.setState(StateIdle)
		return
	}
	c.setState(StateStopping)

	// Cancel first so background reports stop blocking on the inbox.
	sess.cancel()
	c.countdown.Cancel()
	if sess.expiry != nil {
		sess.expiry.Stop()
	}
	if sess.pushes != nil {
		sess.pushes.wait()
	}

	c.active = nil
	c.setSnapshot(nil)
	c.setState(StateIdle)
	sess.log.WithFields(map[string]any{
		"reason": reason,
		"pushed": sess.pushed,
		"failed": sess.failed,
	}).Info("stopped sharing")

	if !reason.NotifiesObserver() {
		return
	}
	if reason == StopExpired && sess.lastRemaining != 0 {
		c.observer.OnRemainingTimeChanged(0)
	}
	c.observer.OnStopped(reason)
}

func (c *Controller) cancelHandshake(reason StopReason) {
	if c.pending != nil {
		c.pending.cancel()
		c.pending = nil
	}
	c.setState(StateIdle)
	c.log.WithField("reason", reason).Info("handshake canceled")
	if !reason.NotifiesObserver() {
		return
	}
	c.observer.OnHandshakeFailed(KindCanceled, FailureMessage(ErrHandshakeCanceled))
}
