package format

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/chattrace/chattrace/internal/model"
)

// sniffLimit bounds how much of a file detection may read.
const sniffLimit = 128 * 1024

// Signature is the rule set a file prefix must satisfy for a
// descriptor to claim it.
type Signature struct {
	// Patterns must all match somewhere in the prefix.
	Patterns []*regexp.Regexp
	// RequiredFields must all be present verbatim in the prefix.
	RequiredFields []string
}

func (s Signature) matches(prefix []byte) bool {
	for _, p := range s.Patterns {
		if !p.Match(prefix) {
			return false
		}
	}
	for _, f := range s.RequiredFields {
		if !bytes.Contains(prefix, []byte(f)) {
			return false
		}
	}
	return true
}

// PreprocessFunc reduces a raw export to a smaller working file in
// tmpDir and returns its path. The caller owns cleanup of the result.
type PreprocessFunc func(ctx context.Context, src, tmpDir string) (string, error)

// Descriptor declares one supported export format.
type Descriptor struct {
	ID         string
	Platform   string
	Priority   int // lower wins on ambiguous matches
	Extensions []string

	Signature Signature
	Parse     ParseFunc

	// Preprocess is optional; it runs before parsing when the export is
	// gzip-compressed or exceeds the configured size threshold.
	Preprocess PreprocessFunc
}

// ShouldPreprocess reports whether the preprocessor must run for the
// given file. Gzip is recognized by content, not extension: a
// compressed export named *.jsonl still detects (readPrefix sniffs
// through gzip) and must be decompressed before parsing.
func (d *Descriptor) ShouldPreprocess(path string, size, threshold int64) bool {
	if d.Preprocess == nil {
		return false
	}
	if isGzipPath(path) || hasGzipMagic(path) {
		return true
	}
	return threshold > 0 && size >= threshold
}

// Registry holds the closed set of hand-registered format descriptors.
type Registry struct {
	descs []*Descriptor
}

// NewRegistry returns a registry with all built-in formats registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(telegramJSON())
	r.Register(wechatJSONL())
	r.Register(qqTXT())
	return r
}

// Register adds a descriptor, keeping the list sorted by priority.
func (r *Registry) Register(d *Descriptor) {
	r.descs = append(r.descs, d)
	sort.SliceStable(r.descs, func(i, j int) bool {
		return r.descs[i].Priority < r.descs[j].Priority
	})
}

// Descriptors lists the registered formats in priority order, for
// capability display only.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

// Detect resolves which format claims the file. It reads at most
// sniffLimit bytes (decompressing a gzip prefix transparently) and
// returns model.ErrUnrecognizedFormat when no signature matches.
func (r *Registry) Detect(path string) (*Descriptor, error) {
	prefix, err := readPrefix(path)
	if err != nil {
		return nil, model.NewImportError(model.KindIOFailure, err)
	}

	ext := effectiveExt(path)
	for _, d := range r.descs {
		if !extAccepted(d.Extensions, ext) {
			continue
		}
		if d.Signature.matches(prefix) {
			return d, nil
		}
	}
	return nil, model.ErrUnrecognizedFormat
}

func readPrefix(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	head = head[:n]

	// Sniff through gzip so compressed exports stay detectable. The
	// reader is still bounded by the prefix we already read.
	if len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(head))
		if err != nil {
			return head, nil
		}
		defer zr.Close()
		plain := make([]byte, sniffLimit)
		m, _ := io.ReadFull(zr, plain)
		if m > 0 {
			return plain[:m], nil
		}
	}
	return head, nil
}

func isGzipPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gz")
}

// hasGzipMagic checks the file for the 0x1f8b gzip header.
func hasGzipMagic(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}
	return magic[0] == 0x1f && magic[1] == 0x8b
}

// effectiveExt strips a trailing .gz so compressed exports match on
// their underlying extension.
func effectiveExt(path string) string {
	if isGzipPath(path) {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	return strings.ToLower(filepath.Ext(path))
}

func extAccepted(exts []string, ext string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
