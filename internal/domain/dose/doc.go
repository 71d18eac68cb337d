// Package dose defines dose events, the append-only adherence records that
// double as the deduplication boundary between the in-process poller and the
// platform notification path.
package dose
