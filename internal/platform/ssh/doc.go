// Package ssh opens remote command-execution sessions on bootstrap hosts.
//
// kubedash uses it to reach a machine that already has kubectl configured
// for the target cluster (typically a control-plane node) and drive the
// credential bootstrap from there. A [Session] wraps one authenticated SSH
// connection; each [Session.Exec] opens a fresh channel on it and reports
// stdout, stderr and the exit status separately so callers can tell
// "command failed" apart from "connection broke".
//
// Failures are classified as [ErrAuthentication] (credentials rejected,
// never retried) or [ErrTransport] (unreachable host, timeout, dropped
// connection).
//
// Security: host key verification is disabled unless a HostKeyCallback is
// configured.
package ssh
