package fsprovider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/volumefind/internal/journal"
)

func TestMonitorPublishesCreateEvent(t *testing.T) {
	dir := t.TempDir()

	m, err := NewMonitor(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx, []string{dir}))
	defer m.Stop()

	target := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(target, []byte("hi"), 0o644))

	select {
	case rec := <-m.Changes():
		assert.Equal(t, "new.txt", rec.Name)
		assert.Contains(t, []journal.Reason{journal.ReasonCreated, journal.ReasonDataModified}, rec.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for create event")
	}
}
