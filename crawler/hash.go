package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/r-che/cadfael/common/log"
)

// Default size of chunks in which file content is hashed
const DefaultHashChunk = 4096

// HashFile returns the hex encoded SHA-256 digest of the file content and number of hashed bytes
func HashFile(ctx context.Context, name string, chunk int) (string, int64, error) {
	log.D("(Extractor:HashFile) Checksum of %q - calculating...", name)

	// Open file to calculate checksum of its content
	f, err := os.Open(name)
	if err != nil {
		return "", 0, fmt.Errorf("(Extractor:HashFile) cannot open %q: %w", name, err)
	}
	defer f.Close()

	sum, n, err := hashReader(ctx, f, chunk)
	if err != nil {
		return "", n, fmt.Errorf("(Extractor:HashFile) cannot calculate checksum of %q: %w", name, err)
	}

	log.D("(Extractor:HashFile) Checksum of %q - done", name)

	return sum, n, nil
}

// hashReader streams r through the hash by chunks, ctx is checked before each chunk
func hashReader(ctx context.Context, r io.Reader, chunk int) (string, int64, error) {
	if chunk <= 0 {
		chunk = DefaultHashChunk
	}

	hash := sha256.New()
	buf := make([]byte, chunk)
	total := int64(0)

	for {
		if err := ctx.Err(); err != nil {
			return "", total, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", total, err
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), total, nil
}
