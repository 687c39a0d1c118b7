package crawler

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/r-che/cadfael/common/log"
)

// Entry is one filesystem entry found by the walker
type Entry struct {
	Volume	string
	Root	string	// normalized scan root, always ends with the separator
	Path	string
	IsDir	bool
}

// Route returns the path of the entry relative to the scan root,
// the leading separator is kept
func (e *Entry) Route() string {
	return string(filepath.Separator) + strings.TrimPrefix(e.Path, e.Root)
}

// NormalizeRoot cleans the root path and appends the trailing separator
func NormalizeRoot(root string) string {
	root = filepath.Clean(root)
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}

	return root
}

// ListTree lazily walks the tree under root in depth-first pre-order and sends
// found entries to the returned channel. The root itself is not sent. Directories
// which cannot be listed are silently skipped with their subtrees. Symbolic
// links are never followed. The channel is closed when the walk is finished or ctx is done
func ListTree(ctx context.Context, volume, root string, buf int) <-chan Entry {
	out := make(chan Entry, buf)
	root = NormalizeRoot(root)

	go func() {
		defer close(out)
		if listTree(ctx, volume, root, root, out) {
			log.D("(Walker) Walking of %q (volume %q) finished", root, volume)
		} else {
			log.D("(Walker) Walking of %q (volume %q) interrupted", root, volume)
		}
	}()

	return out
}

// listTree returns false if the walk was interrupted
func listTree(ctx context.Context, volume, root, dir string, out chan<- Entry) bool {
	des, err := os.ReadDir(dir)
	if err != nil {
		log.D("(Walker) Cannot list %q, skip subtree: %v", dir, err)
		return true
	}

	for _, de := range des {
		ent := Entry{
			Volume:	volume,
			Root:	root,
			Path:	filepath.Join(dir, de.Name()),
			// Type of the entry itself, symlinks to directories are not directories
			IsDir:	de.IsDir(),
		}

		select {
			case <-ctx.Done():
				return false
			case out <- ent:
		}

		if ent.IsDir && !listTree(ctx, volume, root, ent.Path, out) {
			return false
		}
	}

	return true
}
