// Package preview fetches bounded object content and turns it into a
// scrollable line view.
package preview

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// DefaultMaxBytes is the default preview truncation threshold (100 KiB).
const DefaultMaxBytes int64 = 100 * 1024

// Result is fetched preview content.
type Result struct {
	Object provider.Object
	Class  Class

	// Data is nil for binary objects; their content is never fetched
	// beyond what classification needed.
	Data []byte

	// Truncated is set when the object is larger than the byte bound.
	Truncated bool

	// MaxBytes is the bound that was applied.
	MaxBytes int64

	// Lexer is a syntax highlighting hint ("" when unknown).
	Lexer string
}

// Fetch loads a preview of bucket/key bounded by maxBytes (<= 0 uses
// DefaultMaxBytes).
//
// Objects whose name marks them binary are only stat'ed. Objects of
// unknown type are read up to the bound and sniffed.
func Fetch(ctx context.Context, p provider.Provider, bucket, key string, maxBytes int64) (*Result, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	class := ClassifyName(key)
	if class == Binary {
		meta, err := p.StatObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		if meta.IsDirectory {
			return nil, &provider.ProviderError{
				Op: "Preview", Provider: p.Kind(), Bucket: bucket, Key: key,
				Err: provider.ErrUnsupported,
			}
		}
		return &Result{Object: *meta, Class: Binary, MaxBytes: maxBytes}, nil
	}

	// Unknown content is sniffed before the rest of the bound is read.
	first := maxBytes
	if class == Unknown && first > SniffBytes {
		first = SniffBytes
	}
	data, meta, err := HeadBytes(ctx, p, bucket, key, first)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Object:    *meta,
		Class:     class,
		Truncated: meta.Size > maxBytes,
		MaxBytes:  maxBytes,
		Lexer:     Lexer(key),
	}
	if res.Class == Unknown {
		if data == nil {
			data = []byte{}
		}
		res.Class = ClassifyContent(data)
	}
	if res.Class == Text && first < maxBytes && int64(len(data)) < meta.Size {
		end := min(meta.Size, maxBytes)
		have := int64(len(data))
		rest, err := p.GetObject(ctx, bucket, key, provider.GetOptions{Offset: have, Length: end - have})
		if err != nil {
			return nil, err
		}
		if int64(len(rest)) > end-have {
			rest = rest[:end-have]
		}
		data = append(data, rest...)
	}
	if res.Class == Text {
		res.Data = data
	} else {
		res.Lexer = ""
	}
	return res, nil
}

// Lines renders the result: text content split into lines, or a metadata
// block for binary objects.
func (r *Result) Lines() []string {
	if r.Class == Text {
		text := strings.ReplaceAll(decodeText(r.Data), "\r\n", "\n")
		text = strings.TrimSuffix(text, "\n")
		if text == "" {
			return []string{}
		}
		return strings.Split(text, "\n")
	}
	return MetadataLines(r.Object, "[Binary file - preview not available]")
}

// Footer is the status line shown under the view.
func (r *Result) Footer() string {
	if r.Truncated {
		return fmt.Sprintf("[Truncated to %s]", humanize.IBytes(uint64(r.MaxBytes)))
	}
	return ""
}

// MetadataLines describes obj, followed by an optional trailing note.
func MetadataLines(obj provider.Object, note string) []string {
	lines := []string{
		"File: " + obj.Name(),
		"Path: " + obj.Key,
		"Size: " + humanize.IBytes(uint64(obj.Size)),
	}
	if obj.LastModified != nil {
		lines = append(lines, "Modified: "+obj.LastModified.Format("2006-01-02 15:04:05"))
	}
	if obj.ContentType != "" {
		lines = append(lines, "Type: "+obj.ContentType)
	}
	if obj.ETag != "" {
		lines = append(lines, "ETag: "+obj.ETag)
	}
	if note != "" {
		lines = append(lines, "", note)
	}
	return lines
}
