// Package alarm is the in-process alarm engine: a poller that checks the
// schedule once a minute, a matcher that decides whether an entry is due,
// and the state machine that rings until the dose is acknowledged.
package alarm
