package types

const (
	ReloadStatusLoaded   = "loaded"
	ReloadStatusReloaded = "reloaded"
	ReloadStatusFailed   = "failed"
)

// ReloadEvent is published whenever the active policy is (re)built.
// Snapshot is the zstd-compressed, base64url-encoded JSON snapshot of the
// policy that became active; it is empty for failed reloads.
type ReloadEvent struct {
	Status   string `json:"status"`
	File     string `json:"file"`
	At       int64  `json:"at"`
	Error    string `json:"error,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`
}
