//go:build !windows

package journal

import (
	"context"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
)

type unsupportedReader struct{}

// NewReader returns the platform's journal Reader. On non-Windows builds
// this always fails with NotPermittedError, matching internal/volume's
// unsupported reader.
func NewReader() Reader { return &unsupportedReader{} }

func (r *unsupportedReader) Query(ctx context.Context, volumeID string) (Cursor, bool, error) {
	return Cursor{}, false, &volerrors.NotPermittedError{VolumeID: volumeID}
}

func (r *unsupportedReader) Create(ctx context.Context, volumeID string) error {
	return &volerrors.NotPermittedError{VolumeID: volumeID}
}

func (r *unsupportedReader) Read(ctx context.Context, volumeID string, cursor Cursor) ([]ChangeRecord, Cursor, error) {
	return nil, cursor, &volerrors.NotPermittedError{VolumeID: volumeID}
}
