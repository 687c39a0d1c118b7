package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r-che/cadfael/dbi"
)

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:	"reset <volume>",
		Short:	"Delete all records of the volume",
		Args:	cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.doReset(args[0])
		},
	}
}

func (a *app) doReset(volume string) error {
	cat, err := dbi.Open(a.ctx, &a.pc.DBCfg)
	if err != nil {
		return fmt.Errorf("cannot open catalog: %w", err)
	}
	defer cat.Close(context.Background())

	deleted, err := cat.ResetVolume(a.ctx, volume)
	if err != nil {
		return err
	}

	a.summary = fmt.Sprintf("%d records of volume %q deleted", deleted, volume)

	return nil
}
