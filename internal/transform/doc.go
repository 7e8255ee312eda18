// Package transform implements the event transforms behind the query
// language built-ins.
//
// Every function is pure: inputs are never modified and results are
// fresh slices of cloned events. Functions that reorder return events in
// a documented order; all others preserve input order.
package transform
