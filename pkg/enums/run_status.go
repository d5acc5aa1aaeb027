package enums

// RunStatus is the outcome recorded on a schedule after an export run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)
