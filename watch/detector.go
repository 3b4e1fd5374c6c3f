package watch

import "github.com/ceeox/localdeploy/model"

// ChangeDetector decides whether a sync result warrants a build/run
// cycle. It is a separate concern from fetching so the rebuild policy
// can change (say, ignoring documentation-only commits) without
// touching the repository code.
type ChangeDetector func(model.SyncResult) bool

// NewCommits triggers whenever the tracked branch tip moved.
func NewCommits(result model.SyncResult) bool { return result.Changed }
