// Package importer loads a medication manifest (catalog records, schedule
// entries and removals) from YAML into the schedule store.
package importer
