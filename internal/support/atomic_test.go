package support

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "out", "report.html")

	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("content = %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lint.json")
	if err := WriteJSONAtomic(path, map[string]int{"critical": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["critical"] != 2 {
		t.Fatalf("round trip lost data: %v", got)
	}
}

func TestStripBOM(t *testing.T) {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if got := StripBOM(append(bom, []byte(`{"a":1}`)...)); !bytes.Equal(got, []byte(`{"a":1}`)) {
		t.Fatalf("BOM not stripped: %q", got)
	}
	plain := []byte(`{"a":1}`)
	if got := StripBOM(plain); !bytes.Equal(got, plain) {
		t.Fatalf("plain input altered: %q", got)
	}
}

func TestAppendAuditIsAppendOnly(t *testing.T) {
	tmp := t.TempDir()
	if err := AppendAudit(tmp, AuditEntry{Mode: "lint", Files: 3, Status: "clean"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendAudit(tmp, AuditEntry{Mode: "report", Total: 5, Output: "test-report.html"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.Open(filepath.Join(tmp, ".teamwerk", "audit.log"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("log holds %d entries, want 2", len(entries))
	}
	if entries[0].Mode != "lint" || entries[1].Mode != "report" {
		t.Fatalf("entries out of order: %+v", entries)
	}
	if entries[0].TimestampUtc == "" {
		t.Fatalf("timestamp not stamped")
	}
}
