package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/crawler"
	"github.com/r-che/cadfael/dbi"
	"github.com/r-che/cadfael/enrich"
	"github.com/r-che/cadfael/enrich/macho"
)

func (a *app) importCmd() *cobra.Command {
	keep := false

	cmd := &cobra.Command{
		Use:	"import <volume> <root>",
		Short:	"Crawl the tree under root and store its inodes as the volume",
		Long: `Crawl the tree under root and store its inodes as the volume.

All records of the volume are deleted before crawling unless --keep is set.
Records already stored are never updated, only paths found by the crawl are
added to them.`,
		Args:	cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.doImport(args[0], args[1], keep)
		},
	}
	cmd.Flags().BoolVarP(&keep, "keep", "k", false,
		"do not reset the volume before crawling, only add new records and paths")

	return cmd
}

func (a *app) doImport(volume, root string, keep bool) error {
	if volume == "" {
		return fmt.Errorf("empty volume label")
	}

	st, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot use scan root: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("scan root %q is not a directory", root)
	}

	// Enrichment modules
	reg, err := enrich.NewRegistryFrom(a.pc.Modules, macho.New(a.pc.Codesign).Module())
	if err != nil {
		return err
	}
	log.I("Enrichment modules: %v", reg.Names())

	factory := dbi.NewFactory(&a.pc.DBCfg)

	// Session to prepare the volume, workers open their own sessions
	cat, err := factory(a.ctx)
	if err != nil {
		return fmt.Errorf("cannot open catalog: %w", err)
	}
	defer cat.Close(context.Background())

	if err := dbi.PrepareVolume(a.ctx, cat, volume, !keep); err != nil {
		return err
	}

	ex := crawler.NewExtractor(&crawler.ExtractorConfig{
		HashChunk:	a.pc.HashChunk,
		Faults:		a.pc.Faults,
		Registry:	reg,
	})

	rv, err := crawler.Crawl(a.ctx, volume, root, factory, ex, &crawler.PoolConfig{
		Workers:		a.pc.Workers,
		PollInterval:	a.pc.PollInterval,
	})
	a.rv.Merge(rv)
	if err != nil {
		if errors.Is(err, crawler.ErrInterrupted) {
			return fmt.Errorf("import of %q as volume %q: %w, the catalog is incomplete", root, volume, err)
		}
		return err
	}

	a.summary = fmt.Sprintf("%s, %d entries processed, %s hashed", rv,
		ex.Stats().Entries.Load(), humanize.IBytes(uint64(ex.Stats().Hashed.Load())))

	return nil
}
