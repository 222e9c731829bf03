// Package evidence associates screenshot files with acceptance-criteria
// ids and inlines them for embedding into the report document.
package evidence

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mgerety/teamwerk/internal/model"
)

var acPrefix = regexp.MustCompile(`(?i)^ac(\d+)[-_]*`)

var imageMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Collect scans the first existing candidate directory under workspace
// for image files. Images without a resolvable AC id are still returned
// (with an empty ACID) so the report can show them in a general
// gallery. The whole evidence set is optional; a missing directory
// yields nil.
func Collect(workspace string, candidates []string, log *zap.SugaredLogger) []model.EvidenceImage {
	var dir string
	for _, rel := range candidates {
		path := filepath.Join(workspace, rel)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			dir = path
			break
		}
	}
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warnw("cannot read evidence directory", "dir", dir, "error", err)
		return nil
	}
	var images []model.EvidenceImage
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		mime, ok := imageMIME[strings.ToLower(filepath.Ext(e.Name()))]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warnw("cannot read evidence image", "file", e.Name(), "error", err)
			continue
		}
		images = append(images, model.EvidenceImage{
			FileName: e.Name(),
			ACID:     deriveACID(e.Name()),
			Caption:  deriveCaption(e.Name()),
			MIME:     mime,
			Base64:   base64.StdEncoding.EncodeToString(data),
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].FileName < images[j].FileName })
	return images
}

// deriveACID reads the case-insensitive ac<number> filename prefix,
// e.g. "ac1-item-created.png" -> "AC-1".
func deriveACID(name string) string {
	m := acPrefix.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return "AC-" + m[1]
}

// deriveCaption strips the prefix and extension and title-cases the
// remaining hyphen/underscore-delimited tokens:
// "ac1-item-created.png" -> "Item Created".
func deriveCaption(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = acPrefix.ReplaceAllString(base, "")
	fields := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}
