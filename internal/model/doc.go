// Package model defines the records shared by the store, the query engine
// and the CLI: buckets, events and time intervals.
//
// This package contains type definitions and encoding helpers only. All
// other internal packages import model; model imports nothing internal.
//
// Key conventions:
//   - All timestamps are UTC
//   - Durations cross JSON as float seconds with nanosecond precision
//   - Event data is an arbitrary JSON object (map[string]any)
//   - Structural equality of event data is canonical-JSON equality
//   - All JSON tags use snake_case
package model
