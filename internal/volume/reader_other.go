//go:build !windows

package volume

import (
	"context"

	"go.uber.org/zap"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// unsupportedReader is the Reader used on every platform without raw NTFS
// volume access. IsAvailable always reports false; every other method
// returns NotPermittedError so internal/pipeline falls back to
// internal/fsprovider unconditionally.
type unsupportedReader struct {
	log *zap.SugaredLogger
}

// NewReader returns the platform's Reader implementation. On non-Windows
// builds this is always the unsupported stub.
func NewReader(log *zap.SugaredLogger) Reader {
	return &unsupportedReader{log: logging.OrNop(log)}
}

func (r *unsupportedReader) IsAvailable() bool { return false }

func (r *unsupportedReader) Volumes(ctx context.Context) ([]ID, error) {
	return nil, &volerrors.NotPermittedError{VolumeID: "*"}
}

func (r *unsupportedReader) VolumeInfo(ctx context.Context, id ID) (Info, error) {
	return Info{}, &volerrors.NotPermittedError{VolumeID: string(id)}
}

func (r *unsupportedReader) Enumerate(ctx context.Context, id ID, pool *stringpool.StringPool) (Stream, error) {
	return nil, &volerrors.NotPermittedError{VolumeID: string(id)}
}
