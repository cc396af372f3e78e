package tryon

import (
	"bytes"
	"errors"
	"testing"
)

func TestImageHandleLifecycle(t *testing.T) {
	handle := newImageHandle("abc", []byte{1, 2, 3})
	if got := handle.URL(); got != "memory://abc" {
		t.Fatalf("URL = %q", got)
	}

	data, err := handle.Bytes()
	if err != nil || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("Bytes = %v, %v", data, err)
	}

	handle.Release()
	if !handle.Released() {
		t.Fatal("handle should report released")
	}
	if _, err := handle.Bytes(); !errors.Is(err, ErrReleased) {
		t.Fatalf("Bytes after release = %v, want ErrReleased", err)
	}

	// 重复释放幂等
	handle.Release()
}

func TestHistoryEntryScrubsTransientURL(t *testing.T) {
	handle := newImageHandle("abc", []byte{1})
	transient := &Result{ID: "abc", URL: handle.URL(), handle: handle}
	if entry := entryFromResult(transient); entry.URL != "" {
		t.Fatalf("transient URL should be scrubbed, got %q", entry.URL)
	}

	durable := &Result{ID: "def", URL: "/tmp/results/def.jpg"}
	if entry := entryFromResult(durable); entry.URL != "/tmp/results/def.jpg" {
		t.Fatalf("durable URL should survive, got %q", entry.URL)
	}
}
