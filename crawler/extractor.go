package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/enrich"
	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"
)

var ErrUnsupportedKind = errors.New("unsupported inode kind")

type ExtractorConfig struct {
	HashChunk	int					// size of chunks to calculate checksums
	Faults		string				// directory to copy files failed enrichment, empty - do not copy
	Registry	*enrich.Registry	// enrichment modules, nil - no enrichment
}

// Stats are counters of extractor activity, safe for concurrent use
type Stats struct {
	Entries	atomic.Int64	// processed walker entries
	Hashed	atomic.Int64	// bytes of files content hashed
}

type Extractor struct {
	cfg		ExtractorConfig
	stats	*Stats
}

func NewExtractor(cfg *ExtractorConfig) *Extractor {
	ex := &Extractor{
		cfg:	*cfg,
		stats:	&Stats{},
	}
	if ex.cfg.HashChunk <= 0 {
		ex.cfg.HashChunk = DefaultHashChunk
	}
	if ex.cfg.Registry == nil {
		ex.cfg.Registry = enrich.NewRegistry()
		ex.cfg.Registry.Freeze()
	}

	return ex
}

func (ex *Extractor) Stats() *Stats {
	return ex.stats
}

// Extract makes the record of the entry including enrichment, the record is not stored.
// Enrichment failures are returned joined together with the record
func (ex *Extractor) Extract(ctx context.Context, ent Entry) (*types.Inode, error) {
	rec, err := baseInode(ent.Volume, ent.Path)
	if err != nil {
		return nil, err
	}

	switch rec.Format {
		case types.FmtDir:
			// Nothing to add
		case types.FmtSymlink:
			target, err := os.Readlink(ent.Path)
			if err != nil {
				return nil, fmt.Errorf("(Extractor:Extract) cannot read symbolic link %q: %w", ent.Path, err)
			}
			rec.Details[types.DetReadlink] = target
		case types.FmtFile:
			if err := ex.fileDetails(ctx, rec, ent.Path); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("(Extractor:Extract) %s of %q: %w", rec.Format, ent.Path, ErrUnsupportedKind)
	}

	// Run enrichment before the record is persisted
	if err := ex.cfg.Registry.Run(ctx, rec, ent.Path); err != nil {
		return rec, err
	}

	return rec, nil
}

func (ex *Extractor) fileDetails(ctx context.Context, rec *types.Inode, path string) error {
	mt, err := DetectMIME(path)
	if err != nil {
		return err
	}

	sum, n, err := HashFile(ctx, path, ex.cfg.HashChunk)
	ex.stats.Hashed.Add(n)
	if err != nil {
		return err
	}

	rec.Details[types.DetMimeType] = mt
	rec.Details[types.DetSHA256] = sum

	return nil
}

// Process extracts the record of the entry and stores it using cat. Only
// failures that must stop the worker are returned, all per-entry problems
// are logged and counted in rv
func (ex *Extractor) Process(ctx context.Context, cat dbms.Catalog, ent Entry, rv *types.CmdRV) error {
	ex.stats.Entries.Add(1)

	rec, err := ex.Extract(ctx, ent)
	if err != nil {
		// Stop on cancellation
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		switch {
			case rec != nil:
				// Enrichment failed, the record is not stored
				log.W("(Extractor:Process) Skip %q - enrichment failed: %v", ent.Path, err)
				rv.AddWarn("enrichment of %q failed: %v", ent.Path, err)
				ex.saveFault(rec, ent.Path)
			case errors.Is(err, ErrUnsupportedKind):
				log.D("(Extractor:Process) Skip %q: %v", ent.Path, err)
			case errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrNotExist):
				log.D("(Extractor:Process) Skip %q: %v", ent.Path, err)
			default:
				log.W("(Extractor:Process) Skip %q: %v", ent.Path, err)
				rv.AddWarn("cannot extract %q: %v", ent.Path, err)
		}

		rv.AddSkipped(1)

		return nil
	}

	route := ent.Route()
	inserted, err := cat.UpsertInode(ctx, rec, route)
	if err != nil {
		if errors.Is(err, dbms.ErrInvalidRecord) {
			log.W("(Extractor:Process) Skip %q: %v", ent.Path, err)
			rv.AddWarn("cannot store %q: %v", ent.Path, err)
			rv.AddSkipped(1)
			return nil
		}

		// Store failure stops the worker
		return fmt.Errorf("(Extractor:Process) cannot store %s (%q): %w", rec.ID, ent.Path, err)
	}

	if inserted {
		rv.AddInserted(1)
	} else {
		rv.AddMerged(1)
	}

	return nil
}

// saveFault copies the file failed enrichment to the faults directory for later analysis
func (ex *Extractor) saveFault(rec *types.Inode, path string) {
	if ex.cfg.Faults == "" || rec.Format != types.FmtFile {
		return
	}

	sum, ok := rec.Details[types.DetSHA256].(string)
	if !ok || sum == "" {
		return
	}

	dst := filepath.Join(ex.cfg.Faults, sum)
	if err := copyFile(path, dst); err != nil {
		log.E("(Extractor:saveFault) Cannot save faulty file %q: %v", path, err)
		return
	}

	log.I("(Extractor:saveFault) Faulty file %q saved as %q", path, dst)
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY | os.O_CREATE | os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// baseInode makes the record with metadata of the path, symbolic links are not followed
func baseInode(volume, path string) (*types.Inode, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, fmt.Errorf("(Extractor:baseInode) cannot lstat %q: %w", path, err)
	}

	mode := uint32(st.Mode)
	format := modeFormat(mode)
	if format == "" {
		return nil, fmt.Errorf("(Extractor:baseInode) mode %o of %q: %w", mode, path, ErrUnsupportedKind)
	}

	return &types.Inode{
		ID:		types.MakeID(volume, uint64(st.Ino)),
		Volume:	volume,
		Format:	format,
		UID:	st.Uid,
		GID:	st.Gid,
		Size:	st.Size,
		ATime:	tsTime(st.Atim),
		MTime:	tsTime(st.Mtim),
		CTime:	tsTime(st.Ctim),
		Perms:	PermString(types.FormatChar(format), mode),
		Flags:	FlagNames(statFlags(&st)),
		Details:	types.Details{},
	}, nil
}

func tsTime(ts unix.Timespec) time.Time {
	return time.Unix(ts.Unix()).UTC()
}
