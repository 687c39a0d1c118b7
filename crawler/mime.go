package crawler

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME returns the content-sniffed MIME type of the file without parameters
func DetectMIME(name string) (string, error) {
	mt, err := mimetype.DetectFile(name)
	if err != nil {
		return "", fmt.Errorf("(Extractor:DetectMIME) cannot detect type of %q: %w", name, err)
	}

	base, _, _ := strings.Cut(mt.String(), ";")

	return strings.TrimSpace(base), nil
}
