package gotftp

import (
	"path"
	"path/filepath"
	"strings"
)

// validateFilename rejects absolute paths, ".." path segments, and
// embedded NUL bytes before any filesystem call is made. §9's original
// spec left this unspecified ("behavior of the reference when fed
// '../etc/passwd' is unspecified"); the REDESIGN FLAGS make it mandatory.
func validateFilename(name string) error {
	if name == "" {
		return newTransferError(ErrAccessViolation, "empty filename")
	}
	if strings.ContainsRune(name, 0) {
		return newTransferError(ErrAccessViolation, "embedded NUL in filename")
	}
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return newTransferError(ErrAccessViolation, "absolute paths are not allowed")
	}
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == ".." {
			return newTransferError(ErrAccessViolation, "path traversal is not allowed")
		}
	}
	return nil
}

// resolvePath joins a validated, relative filename onto root.
func resolvePath(root, name string) string {
	return filepath.Join(root, filepath.FromSlash(name))
}
