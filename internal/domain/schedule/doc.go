// Package schedule contains the medication reminder definitions the alarm
// engine evaluates: minute-precision times of day, weekday sets and schedule
// entries, plus the occurrence arithmetic shared by the poller and the
// reminder scheduler.
package schedule
