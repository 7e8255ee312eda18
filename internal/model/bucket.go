package model

import "time"

// Bucket is a named, typed container of events from one source.
//
// Key is assigned by the store at creation and never reused within a
// database, even after the bucket is deleted. It is not part of the
// external shape.
type Bucket struct {
	Key      int64     `json:"-"`
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Client   string    `json:"client"`
	Hostname string    `json:"hostname"`
	Created  time.Time `json:"created"`
}

// ExportBucket is a bucket together with all of its events.
type ExportBucket struct {
	Bucket
	Events []Event `json:"events"`
}

// BucketsExport is the document written by export and read by import.
type BucketsExport struct {
	Buckets map[string]ExportBucket `json:"buckets"`
}
