package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r-che/cadfael/dbi"
	"github.com/r-che/cadfael/types/dbms"
)

func (a *app) lookupCmd() *cobra.Command {
	l := dbms.Lookup{}

	cmd := &cobra.Command{
		Use:	"lookup",
		Short:	"Print records selected by volume, permission string and path as JSON lines",
		Args:	cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.doLookup(&l)
		},
	}
	cmd.Flags().StringVar(&l.Volume, "volume", "", "volume label")
	cmd.Flags().StringVar(&l.Perms, "perms", "", "permission string, e.g. -rwsr-xr-x")
	cmd.Flags().StringVar(&l.Path, "path", "", "path relative to the volume root, e.g. /bin/ls")
	cmd.Flags().Int64Var(&l.Limit, "limit", 0, "maximum number of records, 0 - no limits")

	return cmd
}

func (a *app) doLookup(l *dbms.Lookup) error {
	if l.Limit < 0 {
		return fmt.Errorf("invalid limit %d", l.Limit)
	}

	cat, err := dbi.Open(a.ctx, &a.pc.DBCfg)
	if err != nil {
		return fmt.Errorf("cannot open catalog: %w", err)
	}
	defer cat.Close(context.Background())

	found, err := cat.Lookup(a.ctx, l)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.out)
	for _, rec := range found {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("cannot encode record %s: %w", rec.ID, err)
		}
	}

	a.summary = fmt.Sprintf("%d records found", len(found))

	return nil
}
