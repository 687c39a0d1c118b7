package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r-che/cadfael/enrich/macho"
	"github.com/r-che/cadfael/types"
)

func (a *app) machoCmd() *cobra.Command {
	return &cobra.Command{
		Use:	"macho <path>...",
		Short:	"Print analysis of Mach-O files as JSON, the catalog is not used",
		Args:	cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.doMachO(args)
		},
	}
}

func (a *app) doMachO(paths []string) error {
	an := macho.New(a.pc.Codesign)

	analyzed := 0
	for _, path := range paths {
		rep, err := an.Analyze(a.ctx, path)
		if err != nil {
			if a.ctx.Err() != nil {
				return a.ctx.Err()
			}
			if errors.Is(err, macho.ErrNotMachO) {
				a.rv.AddWarn("%q is not a Mach-O file", path)
			} else {
				a.rv.AddErr(err)
			}
			continue
		}

		data, err := json.MarshalIndent(struct {
			Path	string			`json:"path"`
			Details	types.Details	`json:"details"`
		}{path, rep.Details()}, "", "  ")
		if err != nil {
			return fmt.Errorf("cannot encode analysis of %q: %w", path, err)
		}
		fmt.Fprintln(a.out, string(data))
		analyzed++
	}

	a.summary = fmt.Sprintf("%d of %d files analyzed", analyzed, len(paths))

	return nil
}
