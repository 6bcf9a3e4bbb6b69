package enum

type FolderType string

const (
	FolderInbox  FolderType = "inbox"
	FolderSent   FolderType = "sent"
	FolderDrafts FolderType = "drafts"
	FolderTrash  FolderType = "trash"
	FolderSystem FolderType = "system"
	FolderLabel  FolderType = "label"
)

func (t FolderType) String() string {
	return string(t)
}

type ActivityKind string

const (
	ActivityAuthSuccess ActivityKind = "auth_success"
	ActivityAuthFailure ActivityKind = "auth_failure"
	ActivityRateLimited ActivityKind = "rate_limited"
	ActivityReaperSweep ActivityKind = "reaper_sweep"
	ActivityFetchRun    ActivityKind = "fetch_run"
)

func (t ActivityKind) String() string {
	return string(t)
}
