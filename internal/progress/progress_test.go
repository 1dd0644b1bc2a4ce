package progress

import (
	"errors"
	"sync"
	"testing"
)

func collect() (*CallbackReporter, func() []Update) {
	var (
		mu      sync.Mutex
		updates []Update
	)
	r := NewCallbackReporter(func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})
	return r, func() []Update {
		mu.Lock()
		defer mu.Unlock()
		return append([]Update(nil), updates...)
	}
}

func TestCallbackReporter_Lifecycle(t *testing.T) {
	r, updates := collect()

	r.Start("a.typ", 100)
	r.Complete()
	r.Start("b.typ", 50)
	r.Complete()

	got := updates()
	if len(got) != 4 {
		t.Fatalf("expected 4 updates, got %d", len(got))
	}
	if got[0].Type != UpdateStart || got[0].CurrentFile != "a.typ" || got[0].CurrentTotal != 100 {
		t.Errorf("unexpected start update: %+v", got[0])
	}
	last := got[3]
	if last.Type != UpdateComplete || last.FilesCompleted != 2 || last.BytesCompleted != 150 {
		t.Errorf("unexpected final update: %+v", last)
	}

	files, bytes := r.Totals()
	if files != 2 || bytes != 150 {
		t.Errorf("Totals() = %d, %d", files, bytes)
	}
}

func TestCallbackReporter_Error(t *testing.T) {
	r, updates := collect()
	boom := errors.New("disk full")

	r.Start("big.typ", 1<<20)
	r.Error(boom)

	got := updates()
	if len(got) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(got))
	}
	if got[1].Type != UpdateError || !errors.Is(got[1].Error, boom) {
		t.Errorf("unexpected error update: %+v", got[1])
	}
	if files, _ := r.Totals(); files != 0 {
		t.Errorf("failed file counted as completed")
	}
}

func TestCallbackReporter_CallbackMayReenter(t *testing.T) {
	var r *CallbackReporter
	r = NewCallbackReporter(func(u Update) {
		r.Totals()
	})

	done := make(chan struct{})
	go func() {
		r.Start("x", 1)
		r.Complete()
		close(done)
	}()
	<-done
}

func TestCallbackReporter_NilCallback(t *testing.T) {
	r := NewCallbackReporter(nil)
	r.Start("x", 1)
	r.Complete()
	r.Error(errors.New("e"))
}

func TestNullReporter(t *testing.T) {
	var r Reporter = NullReporter{}
	r.Start("x", 1)
	r.Complete()
	r.Error(nil)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
