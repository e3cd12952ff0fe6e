package watcher

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_BurstBecomesOneBatch(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50*time.Millisecond, quiet())
	defer d.Stop()

	// When: the same document is saved repeatedly
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "tools/cmake.yaml", Operation: OpModify, Timestamp: time.Now()})
		time.Sleep(10 * time.Millisecond)
	}

	// Then: one event comes out
	events := receive(t, d)
	require.Len(t, events, 1)
	assert.Equal(t, "tools/cmake.yaml", events[0].Path)
	assert.Equal(t, OpModify, events[0].Operation)
}

func TestDebouncer_Coalescing(t *testing.T) {
	tests := []struct {
		name  string
		ops   []Operation
		want  Operation
		empty bool
	}{
		{"create then modify", []Operation{OpCreate, OpModify}, OpCreate, false},
		{"modify then delete", []Operation{OpModify, OpDelete}, OpDelete, false},
		{"delete then create", []Operation{OpDelete, OpCreate}, OpModify, false},
		{"create then delete", []Operation{OpCreate, OpDelete}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(30*time.Millisecond, quiet())
			defer d.Stop()

			d.Add(FileEvent{Path: "other.yaml", Operation: OpModify})
			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "doc.yaml", Operation: op})
			}

			events := receive(t, d)
			if tt.empty {
				require.Len(t, events, 1)
				assert.Equal(t, "other.yaml", events[0].Path)
				return
			}
			require.Len(t, events, 2)
			assert.Equal(t, "doc.yaml", events[0].Path)
			assert.Equal(t, tt.want, events[0].Operation)
		})
	}
}

func TestDebouncer_BatchIsSortedByPath(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, quiet())
	defer d.Stop()

	d.Add(FileEvent{Path: "c.yaml", Operation: OpDelete})
	d.Add(FileEvent{Path: "a.yaml", Operation: OpCreate})
	d.Add(FileEvent{Path: "b.yaml", Operation: OpModify})

	events := receive(t, d)
	require.Len(t, events, 3)
	assert.Equal(t, "a.yaml", events[0].Path)
	assert.Equal(t, "b.yaml", events[1].Path)
	assert.Equal(t, "c.yaml", events[2].Path)
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(50*time.Millisecond, quiet())
	d.Add(FileEvent{Path: "pending.yaml", Operation: OpCreate})

	d.Stop()
	d.Stop()

	_, ok := <-d.Output()
	assert.False(t, ok, "channel should be closed")
}
