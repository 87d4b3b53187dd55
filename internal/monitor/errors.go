package monitor

import "errors"

// ErrProcessGone is returned by a ProcessSource when the PID no longer
// exists or can no longer be inspected. The correlator treats it as churn.
var ErrProcessGone = errors.New("process is gone")

// ErrPermission is returned by a ConnectionSource when the OS refuses to
// enumerate connections for the current user.
var ErrPermission = errors.New("permission denied")

// ErrCapabilityUnavailable is returned when an operation needs an external
// facility the Probe found missing.
var ErrCapabilityUnavailable = errors.New("capability unavailable")
