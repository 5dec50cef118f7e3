package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

type BatchState int

const (
	BatchIdle BatchState = iota
	BatchUploading
	BatchCompleted
)

type FileState string

const (
	FilePending   FileState = "pending"
	FileUploading FileState = "uploading"
	FileSucceeded FileState = "succeeded"
	FileFailed    FileState = "failed"
)

var (
	ErrRunInProgress  = errors.New("upload batch run already in progress")
	ErrBatchCompleted = errors.New("upload batch already completed")
	// ErrAllUploadsFailed marks the one terminal state that counts as a
	// batch-level failure: every single file failed. Partial failure is
	// a normal outcome and returns no error.
	ErrAllUploadsFailed = errors.New("all uploads in batch failed")
)

// File is one selected upload candidate.
type File struct {
	Name      string
	MimeType  string
	SizeBytes int64
	Reader    io.Reader
}

// Uploader performs one file upload. Implementations must invoke
// onProgress synchronously with a 0-100 percentage; the orchestrator
// maps it into overall batch progress.
type Uploader interface {
	Upload(ctx context.Context, index int, f *File, onProgress func(pct int)) error
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(ctx context.Context, index int, f *File, onProgress func(pct int)) error

func (fn UploaderFunc) Upload(ctx context.Context, index int, f *File, onProgress func(pct int)) error {
	return fn(ctx, index, f, onProgress)
}

// Rejection reports one candidate refused at selection time.
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

const (
	RejectUnsupportedType = "unsupported_mime_type"
	RejectFileTooLarge    = "file_too_large"
)

// Selection is the outcome of SelectFiles: what got in, what was
// refused and why, and which valid files fell off the batch cap.
type Selection struct {
	Accepted  int         `json:"accepted"`
	Rejected  []Rejection `json:"rejected"`
	Truncated []string    `json:"truncated"`
}

// FileResult is the terminal per-file outcome of a run.
type FileResult struct {
	Index int       `json:"index"`
	Name  string    `json:"name"`
	State FileState `json:"state"`
	Error string    `json:"error,omitempty"`
}

// Summary is the terminal state of one batch run.
type Summary struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []FileResult `json:"results"`
}

// Progress is one overall-progress observation, emitted via the
// batch's progress callback.
type Progress struct {
	FileIndex int `json:"file_index"`
	FilePct   int `json:"file_pct"`
	Overall   int `json:"overall"`
}

// Batch sequences the upload of up to MaxBatchFiles files, strictly
// one at a time. Sequential processing is deliberate: it bounds
// backend load and keeps overall progress monotonic. A batch is a
// transient, single-use job; Run may only be called once, and there is
// no mid-run cancellation (an in-flight file runs to completion or
// failure before the next file boundary).
type Batch struct {
	log        *logger.Logger
	policy     Policy
	onProgress func(Progress)

	mu       sync.Mutex
	state    BatchState
	files    []*File
	statuses []FileResult
	overall  int
}

func NewBatch(log *logger.Logger, policy Policy, onProgress func(Progress)) *Batch {
	if log != nil {
		log = log.With("component", "UploadBatch")
	}
	return &Batch{
		log:        log,
		policy:     policy,
		onProgress: onProgress,
		state:      BatchIdle,
	}
}

// SelectFiles validates each candidate individually against the policy
// and accepts the valid ones up to the batch cap. Invalid candidates
// are rejected one by one, never the whole batch; valid candidates
// past the cap are truncated and reported so the UI can surface the
// limit.
func (b *Batch) SelectFiles(candidates []*File) Selection {
	b.mu.Lock()
	defer b.mu.Unlock()

	sel := Selection{Rejected: []Rejection{}, Truncated: []string{}}
	if b.state != BatchIdle {
		return sel
	}

	for _, f := range candidates {
		if f == nil {
			continue
		}
		if !b.policy.Allows(f.MimeType) {
			sel.Rejected = append(sel.Rejected, Rejection{Name: f.Name, Reason: RejectUnsupportedType})
			continue
		}
		if f.SizeBytes > b.policy.MaxFileBytes {
			sel.Rejected = append(sel.Rejected, Rejection{Name: f.Name, Reason: RejectFileTooLarge})
			continue
		}
		if len(b.files) >= b.policy.MaxBatchFiles {
			sel.Truncated = append(sel.Truncated, f.Name)
			continue
		}
		b.files = append(b.files, f)
		b.statuses = append(b.statuses, FileResult{
			Index: len(b.files) - 1,
			Name:  f.Name,
			State: FilePending,
		})
		sel.Accepted++
	}
	return sel
}

// RemoveFile drops one entry before the run starts. Once uploading it
// is a no-op.
func (b *Batch) RemoveFile(index int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BatchIdle || index < 0 || index >= len(b.files) {
		return false
	}
	b.files = append(b.files[:index], b.files[index+1:]...)
	b.statuses = append(b.statuses[:index], b.statuses[index+1:]...)
	for i := range b.statuses {
		b.statuses[i].Index = i
	}
	return true
}

func (b *Batch) Files() []*File {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*File, len(b.files))
	copy(out, b.files)
	return out
}

func (b *Batch) OverallProgress() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overall
}

// Run uploads the selected files in selection order and returns the
// terminal summary. One file's failure never aborts the batch; only a
// batch where every file failed returns ErrAllUploadsFailed alongside
// the summary.
func (b *Batch) Run(ctx context.Context, up Uploader) (*Summary, error) {
	b.mu.Lock()
	switch b.state {
	case BatchUploading:
		b.mu.Unlock()
		return nil, ErrRunInProgress
	case BatchCompleted:
		b.mu.Unlock()
		return nil, ErrBatchCompleted
	}
	b.state = BatchUploading
	files := make([]*File, len(b.files))
	copy(files, b.files)
	b.mu.Unlock()

	n := len(files)
	for i, f := range files {
		b.setFileState(i, FileUploading, "")
		b.reportProgress(i, 0, n)

		err := up.Upload(ctx, i, f, func(pct int) {
			b.reportProgress(i, pct, n)
		})

		// The file's slice of the bar is complete regardless of
		// outcome before the next file starts.
		b.setOverall(roundPct((i+1)*100, n))
		if err != nil {
			if b.log != nil {
				b.log.Warn("file upload failed", "index", i, "file", f.Name, "error", err)
			}
			b.setFileState(i, FileFailed, err.Error())
			continue
		}
		b.setFileState(i, FileSucceeded, "")
	}

	b.mu.Lock()
	b.state = BatchCompleted
	if n > 0 {
		b.overall = 100
	}
	summary := &Summary{
		Total:   n,
		Results: make([]FileResult, len(b.statuses)),
	}
	copy(summary.Results, b.statuses)
	b.mu.Unlock()

	for _, r := range summary.Results {
		switch r.State {
		case FileSucceeded:
			summary.Succeeded++
		case FileFailed:
			summary.Failed++
		}
	}

	if b.log != nil {
		b.log.Info("upload batch finished",
			"total", summary.Total,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
		)
	}
	if n > 0 && summary.Failed == n {
		return summary, fmt.Errorf("%w: %d file(s)", ErrAllUploadsFailed, n)
	}
	return summary, nil
}

func (b *Batch) Results() []FileResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FileResult, len(b.statuses))
	copy(out, b.statuses)
	return out
}

func (b *Batch) setFileState(index int, state FileState, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.statuses) {
		return
	}
	b.statuses[index].State = state
	b.statuses[index].Error = reason
}

// reportProgress maps file i's own 0-100 progress into the overall
// percentage: overall = ((i*100)+p)/n, rounded, clamped monotonic.
func (b *Batch) reportProgress(index, pct, total int) {
	if total == 0 {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	overall := roundPct(index*100+pct, total)
	changed := b.setOverall(overall)
	if changed && b.onProgress != nil {
		b.onProgress(Progress{FileIndex: index, FilePct: pct, Overall: b.OverallProgress()})
	}
}

// setOverall never lets the bar move backwards.
func (b *Batch) setOverall(v int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v <= b.overall {
		return false
	}
	b.overall = v
	return true
}

func roundPct(numerator, denominator int) int {
	return int(math.Round(float64(numerator) / float64(denominator)))
}
