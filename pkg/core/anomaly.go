package core

// AnomalyCounts records soft consistency anomalies observed by a store.
// Conflicting re-associations and index entries with no backing primary
// record are logged and counted here rather than surfaced as errors.
type AnomalyCounts struct {
	// IndexConflicts counts set-once index writes that disagreed with an
	// existing entry and were skipped.
	IndexConflicts int
	// MissingRecords counts index entries found without a backing primary
	// record during a projected query.
	MissingRecords int
}

// Total returns the sum of all recorded anomalies.
func (a AnomalyCounts) Total() int {
	return a.IndexConflicts + a.MissingRecords
}
