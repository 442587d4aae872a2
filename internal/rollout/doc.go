// Package rollout restarts workloads and follows them until they converge.
//
// A rollout is a small state machine:
//
//	requesting -> polling -> done
//
// requesting patches the pod template's restart annotation. polling reads the
// workload status immediately and then on every tick until every desired
// replica is ready and available, the deadline passes, or the caller's
// context is cancelled. Status read errors while polling are treated as
// "not yet converged".
package rollout
