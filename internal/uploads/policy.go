package uploads

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxBatchFiles caps one batch; extra valid files are
	// truncated, not rejected.
	DefaultMaxBatchFiles = 10
	// DefaultMaxFileBytes is 6 GiB per file.
	DefaultMaxFileBytes = 6 << 30
)

// Policy is the selection-time validation table: which media types a
// session upload accepts and how large a single file may be. It can be
// overridden from a yaml file so ops can extend the MIME set without a
// rebuild.
type Policy struct {
	MaxBatchFiles    int      `yaml:"max_batch_files"`
	MaxFileBytes     int64    `yaml:"max_file_bytes"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types"`

	allowed map[string]bool
}

func defaultMimeTypes() []string {
	return []string{
		"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav",
		"audio/ogg", "audio/m4a", "audio/x-m4a", "audio/aac",
		"audio/flac", "audio/webm",
		"video/mp4", "video/mpeg", "video/quicktime", "video/x-msvideo",
		"video/webm", "video/x-ms-wmv", "video/3gpp", "video/x-flv",
	}
}

func DefaultPolicy() Policy {
	p := Policy{
		MaxBatchFiles:    DefaultMaxBatchFiles,
		MaxFileBytes:     DefaultMaxFileBytes,
		AllowedMimeTypes: defaultMimeTypes(),
	}
	p.index()
	return p
}

// LoadPolicy reads a yaml policy file, filling unset fields from the
// defaults.
func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read upload policy: %w", err)
	}
	p := Policy{}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse upload policy: %w", err)
	}
	if p.MaxBatchFiles <= 0 {
		p.MaxBatchFiles = DefaultMaxBatchFiles
	}
	if p.MaxFileBytes <= 0 {
		p.MaxFileBytes = DefaultMaxFileBytes
	}
	if len(p.AllowedMimeTypes) == 0 {
		p.AllowedMimeTypes = defaultMimeTypes()
	}
	p.index()
	return p, nil
}

func (p *Policy) index() {
	p.allowed = make(map[string]bool, len(p.AllowedMimeTypes))
	for _, m := range p.AllowedMimeTypes {
		p.allowed[normalizeMime(m)] = true
	}
}

func (p *Policy) Allows(mimeType string) bool {
	if p.allowed == nil {
		p.index()
	}
	return p.allowed[normalizeMime(mimeType)]
}

func normalizeMime(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	// Strip parameters such as "; codecs=opus".
	if i := strings.Index(m, ";"); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	return m
}
