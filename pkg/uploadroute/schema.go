package uploadroute

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/gabriel-vasile/mimetype"
)

// Schema declares the shape and constraints of files a route accepts. It is
// pure data: no provider awareness, no side effects. Validation runs at
// presign time against the client-declared FileInfo.
type Schema struct {
	Kind SchemaKind

	// MaxSize is the per-file size limit in bytes. Zero means unlimited.
	MaxSize int64

	// AllowedTypes lists accepted MIME types. A trailing "/*" matches the
	// whole top-level type (e.g. "image/*"). Empty means any type.
	AllowedTypes []string

	// AllowedExtensions lists accepted file extensions, with or without the
	// leading dot. Empty means any extension.
	AllowedExtensions []string

	// Dimensions constrain image width/height. Advertised to clients via
	// introspection; enforced client-side (see RouteInfo).
	Dimensions *Dimensions

	// MaxFiles limits batch size for array schemas. Zero means unlimited.
	MaxFiles int
}

// FileSchema accepts a single file of any type.
func FileSchema() Schema {
	return Schema{Kind: SchemaKindFile}
}

// ImageSchema accepts image files only.
func ImageSchema() Schema {
	return Schema{Kind: SchemaKindImage, AllowedTypes: []string{"image/*"}}
}

// ObjectSchema accepts a named set of fields, each a file.
func ObjectSchema() Schema {
	return Schema{Kind: SchemaKindObject}
}

// ArraySchema accepts up to maxFiles files per batch.
func ArraySchema(maxFiles int) Schema {
	return Schema{Kind: SchemaKindArray, MaxFiles: maxFiles}
}

// Validate checks the client-declared file against the schema constraints.
// The first failing constraint wins; the returned error is always a
// *ValidationError carrying a displayable reason.
func (s Schema) Validate(f FileInfo) error {
	if f.Name == "" {
		return &ValidationError{File: f.Name, Field: "name", Reason: "file name is required"}
	}
	if f.Size <= 0 {
		return &ValidationError{File: f.Name, Field: "size", Reason: "file size must be positive"}
	}
	if s.MaxSize > 0 && f.Size > s.MaxSize {
		return &ValidationError{
			File:  f.Name,
			Field: "size",
			Reason: fmt.Sprintf("file is %s, limit is %s",
				units.HumanSize(float64(f.Size)), units.HumanSize(float64(s.MaxSize))),
		}
	}
	if len(s.AllowedTypes) > 0 && !matchesMIME(f.Type, s.AllowedTypes) {
		return &ValidationError{
			File:   f.Name,
			Field:  "type",
			Reason: fmt.Sprintf("type %q is not allowed (allowed: %s)", f.Type, strings.Join(s.AllowedTypes, ", ")),
		}
	}
	if len(s.AllowedExtensions) > 0 && !matchesExtension(f, s.AllowedExtensions) {
		return &ValidationError{
			File:   f.Name,
			Field:  "extension",
			Reason: fmt.Sprintf("extension %q is not allowed (allowed: %s)", filepath.Ext(f.Name), strings.Join(s.AllowedExtensions, ", ")),
		}
	}
	return nil
}

// matchesMIME reports whether declared matches any entry in allowed.
// Entries of the form "image/*" match the whole top-level type.
func matchesMIME(declared string, allowed []string) bool {
	declared = normalizeMIME(declared)
	if declared == "" {
		return false
	}
	for _, a := range allowed {
		a = normalizeMIME(a)
		if topLevel, ok := strings.CutSuffix(a, "/*"); ok {
			if strings.HasPrefix(declared, topLevel+"/") {
				return true
			}
			continue
		}
		if declared == a {
			return true
		}
	}
	return false
}

// normalizeMIME lowercases and strips parameters ("; charset=utf-8").
func normalizeMIME(mime string) string {
	mime = strings.TrimSpace(strings.ToLower(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

// matchesExtension checks the file name's extension against the allowed
// list. A file without an extension still passes if its declared MIME type
// maps to an allowed extension.
func matchesExtension(f FileInfo, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext == "" {
		if m := mimetype.Lookup(normalizeMIME(f.Type)); m != nil {
			ext = m.Extension()
		}
	}
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		a = strings.ToLower(a)
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if ext == a {
			return true
		}
	}
	return false
}
