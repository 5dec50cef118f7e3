package uploads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func candidate(name, mime string, size int64) *File {
	return &File{Name: name, MimeType: mime, SizeBytes: size, Reader: strings.NewReader("data")}
}

func audioFile(name string) *File {
	return candidate(name, "audio/mpeg", 1024)
}

func TestSelectFilesValidation(t *testing.T) {
	t.Run("oversized_rejected_individually", func(t *testing.T) {
		b := NewBatch(nil, DefaultPolicy(), nil)
		sel := b.SelectFiles([]*File{
			audioFile("ok.mp3"),
			candidate("huge.mp4", "video/mp4", DefaultMaxFileBytes+1),
		})
		if sel.Accepted != 1 {
			t.Fatalf("accepted = %d, want 1", sel.Accepted)
		}
		if len(sel.Rejected) != 1 || sel.Rejected[0].Name != "huge.mp4" || sel.Rejected[0].Reason != RejectFileTooLarge {
			t.Fatalf("rejected = %+v", sel.Rejected)
		}
	})

	t.Run("wrong_type_rejected", func(t *testing.T) {
		b := NewBatch(nil, DefaultPolicy(), nil)
		sel := b.SelectFiles([]*File{candidate("notes.pdf", "application/pdf", 10)})
		if sel.Accepted != 0 || len(sel.Rejected) != 1 || sel.Rejected[0].Reason != RejectUnsupportedType {
			t.Fatalf("selection = %+v", sel)
		}
	})

	t.Run("mime_parameters_tolerated", func(t *testing.T) {
		b := NewBatch(nil, DefaultPolicy(), nil)
		sel := b.SelectFiles([]*File{candidate("clip.webm", "audio/webm; codecs=opus", 10)})
		if sel.Accepted != 1 {
			t.Fatalf("selection = %+v", sel)
		}
	})

	t.Run("cap_truncates_valid_extras", func(t *testing.T) {
		b := NewBatch(nil, DefaultPolicy(), nil)
		files := make([]*File, 0, 12)
		for i := 0; i < 12; i++ {
			files = append(files, audioFile(fmt.Sprintf("f%d.mp3", i)))
		}
		sel := b.SelectFiles(files)
		if sel.Accepted != 10 {
			t.Fatalf("accepted = %d, want 10", sel.Accepted)
		}
		if len(sel.Truncated) != 2 {
			t.Fatalf("truncated = %v, want 2 entries", sel.Truncated)
		}
		if got := len(b.Files()); got != 10 {
			t.Fatalf("retained = %d, want 10", got)
		}
		// First ten in selection order.
		if b.Files()[0].Name != "f0.mp3" || b.Files()[9].Name != "f9.mp3" {
			t.Fatalf("selection order not preserved: %v", b.Files())
		}
	})
}

func TestRemoveFile(t *testing.T) {
	b := NewBatch(nil, DefaultPolicy(), nil)
	b.SelectFiles([]*File{audioFile("a.mp3"), audioFile("b.mp3"), audioFile("c.mp3")})

	if !b.RemoveFile(1) {
		t.Fatalf("RemoveFile(1) should succeed before run")
	}
	files := b.Files()
	if len(files) != 2 || files[0].Name != "a.mp3" || files[1].Name != "c.mp3" {
		t.Fatalf("files after removal: %v", files)
	}
	if b.RemoveFile(5) {
		t.Fatalf("out-of-range removal should be a no-op")
	}
}

func TestRunPartialFailure(t *testing.T) {
	var observed []int
	b := NewBatch(nil, DefaultPolicy(), func(p Progress) {
		observed = append(observed, p.Overall)
	})
	b.SelectFiles([]*File{audioFile("one.mp3"), audioFile("two.mp3"), audioFile("three.mp3")})

	up := UploaderFunc(func(ctx context.Context, index int, f *File, onProgress func(int)) error {
		onProgress(50)
		onProgress(100)
		if index == 1 {
			return errors.New("backend rejected file")
		}
		return nil
	})

	summary, err := b.Run(context.Background(), up)
	if err != nil {
		t.Fatalf("partial failure must not error the batch: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 || summary.Total != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Results[0].State != FileSucceeded ||
		summary.Results[1].State != FileFailed ||
		summary.Results[2].State != FileSucceeded {
		t.Fatalf("results = %+v", summary.Results)
	}
	if summary.Results[1].Error == "" {
		t.Fatalf("failed file must carry a reason")
	}

	if b.OverallProgress() != 100 {
		t.Fatalf("overall = %d, want 100", b.OverallProgress())
	}
	last := -1
	for _, v := range observed {
		if v < last {
			t.Fatalf("overall progress decreased: %v", observed)
		}
		last = v
	}
}

func TestRunProgressMapping(t *testing.T) {
	var observed []Progress
	b := NewBatch(nil, DefaultPolicy(), func(p Progress) {
		observed = append(observed, p)
	})
	b.SelectFiles([]*File{audioFile("one.mp3"), audioFile("two.mp3")})

	up := UploaderFunc(func(ctx context.Context, index int, f *File, onProgress func(int)) error {
		onProgress(50)
		return nil
	})
	if _, err := b.Run(context.Background(), up); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// File 0 at 50% of 2 files -> 25; file 1 at 50% -> 75.
	want := map[int]int{0: 25, 1: 75}
	seen := map[int]bool{}
	for _, p := range observed {
		if p.FilePct == 50 {
			if p.Overall != want[p.FileIndex] {
				t.Fatalf("file %d at 50%% mapped to %d, want %d", p.FileIndex, p.Overall, want[p.FileIndex])
			}
			seen[p.FileIndex] = true
		}
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("missing mapped progress observations: %+v", observed)
	}
}

func TestRunAllFailed(t *testing.T) {
	b := NewBatch(nil, DefaultPolicy(), nil)
	b.SelectFiles([]*File{audioFile("one.mp3"), audioFile("two.mp3")})

	up := UploaderFunc(func(ctx context.Context, index int, f *File, onProgress func(int)) error {
		return errors.New("network down")
	})
	summary, err := b.Run(context.Background(), up)
	if !errors.Is(err, ErrAllUploadsFailed) {
		t.Fatalf("err = %v, want ErrAllUploadsFailed", err)
	}
	if summary == nil || summary.Failed != 2 || summary.Succeeded != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if b.OverallProgress() != 100 {
		t.Fatalf("overall = %d, want 100 even on total failure", b.OverallProgress())
	}
}

func TestRunIsSingleUse(t *testing.T) {
	b := NewBatch(nil, DefaultPolicy(), nil)
	b.SelectFiles([]*File{audioFile("one.mp3")})

	started := make(chan struct{})
	release := make(chan struct{})
	up := UploaderFunc(func(ctx context.Context, index int, f *File, onProgress func(int)) error {
		close(started)
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := b.Run(context.Background(), up)
		done <- err
	}()

	<-started
	if _, err := b.Run(context.Background(), up); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("concurrent run err = %v, want ErrRunInProgress", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}

	if _, err := b.Run(context.Background(), up); !errors.Is(err, ErrBatchCompleted) {
		t.Fatalf("re-run err = %v, want ErrBatchCompleted", err)
	}
}

func TestRunSequentialOrdering(t *testing.T) {
	b := NewBatch(nil, DefaultPolicy(), nil)
	b.SelectFiles([]*File{audioFile("a.mp3"), audioFile("b.mp3"), audioFile("c.mp3")})

	var order []int
	up := UploaderFunc(func(ctx context.Context, index int, f *File, onProgress func(int)) error {
		order = append(order, index)
		return nil
	})
	if _, err := b.Run(context.Background(), up); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("files processed out of order: %v", order)
		}
	}
}

func TestRemoveFileNoOpWhileUploading(t *testing.T) {
	b := NewBatch(nil, DefaultPolicy(), nil)
	b.SelectFiles([]*File{audioFile("a.mp3"), audioFile("b.mp3")})

	removed := true
	up := UploaderFunc(func(ctx context.Context, index int, f *File, onProgress func(int)) error {
		if index == 0 {
			removed = b.RemoveFile(1)
		}
		return nil
	})
	summary, err := b.Run(context.Background(), up)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if removed {
		t.Fatalf("RemoveFile must be a no-op once uploading")
	}
	if summary.Total != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}
