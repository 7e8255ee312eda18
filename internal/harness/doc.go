// Package harness runs conformance scenarios against the event store and
// the query engine.
//
// A scenario is a YAML file of setup steps, flow steps and assertions.
// Steps create and delete buckets, insert events, send heartbeats,
// delete events and run queries. Each flow step may carry an expect
// clause naming the error class it must fail with or the result it must
// produce. Assertions check the final store contents and the trace.
//
// Every run uses a fresh in-memory store with its clock pinned to
// testutil.Epoch, so traces are reproducible and can be compared with
// golden files (see RunWithGolden). The tempo test command runs
// scenario files the same way.
//
// Example scenario:
//
//	name: coalescing
//	setup:
//	  - op: create_bucket
//	    bucket: window
//	flow:
//	  - op: heartbeat
//	    bucket: window
//	    pulsetime: 10
//	    event: {timestamp: "2000-01-01T00:00:00Z", data: {app: editor}}
//	  - op: query
//	    intervals: ["2000-01-01T00:00:00Z/2000-01-02T00:00:00Z"]
//	    query: ['return sum_durations(query_bucket("window"));']
//	    expect:
//	      result: [0]
//	assertions:
//	  - type: event_count
//	    bucket: window
//	    count: 1
package harness
