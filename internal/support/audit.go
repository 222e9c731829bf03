package support

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AuditEntry records one lint or report invocation in the append-only
// run log at .teamwerk/audit.log (one JSON object per line).
type AuditEntry struct {
	TimestampUtc string `json:"timestampUtc"`
	Mode         string `json:"mode"` // "lint" | "report" | "watch"
	Files        int    `json:"files,omitempty"`
	Critical     int    `json:"critical,omitempty"`
	Warnings     int    `json:"warnings,omitempty"`
	Status       string `json:"status,omitempty"`
	Total        int    `json:"total,omitempty"`
	Passed       int    `json:"passed,omitempty"`
	Failed       int    `json:"failed,omitempty"`
	Output       string `json:"output,omitempty"`
}

// AppendAudit appends entry to the workspace run log. The log is opened
// O_APPEND only; audit history is never rewritten.
func AppendAudit(workspace string, entry AuditEntry) error {
	entry.TimestampUtc = time.Now().UTC().Format(time.RFC3339)
	path := filepath.Join(workspace, ".teamwerk", "audit.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}
