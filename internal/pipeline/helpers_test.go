package pipeline

import (
	"os"

	"github.com/standardbeagle/volumefind/internal/fsprovider"
)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

func newTestFsProvider() *fsprovider.Provider {
	return fsprovider.NewProvider(fsprovider.Config{})
}
