package specfile

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// WriteFile encodes settings to path atomically: the data is written to a
// pending file, synced and renamed over path, so readers never observe a
// partially written spec.
func WriteFile(path string, settings []Setting) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644), renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("create pending spec file: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if err := Encode(pending, settings); err != nil {
		return fmt.Errorf("encode spec: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace spec file: %w", err)
	}
	return nil
}
