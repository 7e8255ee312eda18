// Package query implements the embedded scripting language used to ask
// questions of the event store.
//
// A script is a sequence of ';'-terminated statements:
//
//	events = query_bucket("aw-watcher-window_myhost");
//	events = merge_events_by_keys(events, ["app"]);
//	return sort_by_duration(events);
//
// Parse produces an immutable Program. Evaluate runs it against one time
// interval with a Reader (normally a *store.Tx inside an exclusive
// section). Run ties both together for a list of intervals, taking the
// store's exclusive section once per interval.
//
// Values are the sealed Value interface: Number, String, Bool, List,
// Dict, None and Callable. Built-ins are Callables in the same flat name
// table as variables, so assignment can shadow them.
//
// Errors are *Error values with a Kind; use IsParseError,
// IsVariableNotDefined, IsInvalidType, IsMathError and
// IsBucketQueryError to classify them.
package query
