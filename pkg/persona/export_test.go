package persona

// SetLockQueue exposes the channel-switch queue lock to tests.
func (r *Runtime) SetLockQueue(locked bool) { r.setLockQueue(locked) }
