// Package alarm contains the state of the single-slot medication alarm.
//
// It defines Phase (idle, ringing, acknowledging), Actor (who confirmed a dose)
// and State (the alarm status at a point in time) with Clone helpers to avoid
// leaking internal references.
package alarm
