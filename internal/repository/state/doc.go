// Package state persists the alarm snapshot so a ringing alarm survives a
// daemon restart.
//
// The FileRepository stores and loads the snapshot as JSON on disk and exposes
// a Repository interface that the alarm state machine depends on.
package state
