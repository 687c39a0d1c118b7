package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/r-che/cadfael/cmd/cadfael/internal/cfg"
	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/common/tools"
	"github.com/r-che/cadfael/types"
)

const (
	ProgName		=	`cadfael`
	ProgNameLong	=	`Filesystem inode catalog`
	versMilestone	=	`-alpha.1`
	ProgVers		=	`0.1.0` + versMilestone
)

// Exit codes
const (
	ExitOK			=	0
	ExitUsage		=	1
	ExitWarn		=	2
	ExitErr			=	3
)

const authors = "Roman Chebotarev"

// app is the state of one program run
type app struct {
	pc		*cfg.ProgConfig
	out		io.Writer	// output of results

	ctx		context.Context
	cancel	context.CancelFunc
	sh		*signalsHandler

	// Set when configuration is prepared and the command is running
	started	bool

	rv		*types.CmdRV
	summary	string	// printed on success if not quiet
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	a := &app{
		pc:		cfg.New(),
		out:	out,
		rv:		types.NewCmdRV(),
	}

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)

	err := root.Execute()
	a.finish()

	if err != nil {
		if !a.started {
			// Some problems with command line options or configuration
			fmt.Fprintf(os.Stderr, "%s: usage error - %v\n", ProgName, err)
			fmt.Fprintf(os.Stderr, "Try '%s --help' for more information.\n", ProgName)
			return ExitUsage
		}
		a.rv.AddErr(err)
	}

	if !a.started {
		// Help or version was requested
		return ExitOK
	}

	return a.printStatus()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:	ProgName,
		Short:	ProgNameLong,
		Long: ProgNameLong + ` - crawls filesystem trees and stores one record per inode
in the catalog database. Records of regular files carry the content checksum and
MIME type, Mach-O binaries are additionally analyzed.

Supported signals:
  TERM, INT - stop the running operation, repeat to abort immediately
  HUP       - reopen log file`,
		Version:	ProgVers,

		SilenceUsage:	true,
		SilenceErrors:	true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.prepare()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("%s (%s) {{.Version}}\nWritten by %s\n",
		ProgNameLong, ProgName, authors))

	a.pc.AddFlags(root.PersistentFlags())

	root.AddCommand(
		a.importCmd(),
		a.resetCmd(),
		a.lookupCmd(),
		a.machoCmd(),
	)

	return root
}

// prepare loads configuration, opens log and starts signals handling before running any command
func (a *app) prepare() error {
	if err := a.pc.Prepare(); err != nil {
		return err
	}

	// Configure logger
	logFlags := tools.Tern(a.pc.NoLogTS, log.NoFlags, log.Timestamps)
	if err := log.Open(a.pc.LogFile, ProgName, logFlags); err != nil {
		return err
	}
	log.SetDebug(a.pc.Debug)

	if !a.pc.Quiet {
		fmt.Fprintf(os.Stderr, "%s (%s) %s\n", ProgNameLong, ProgName, ProgVers)
	}

	log.D("==== %s %s started ====", ProgNameLong, ProgVers)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.sh = newSignalsHandler(a.cancel)
	go a.sh.wait()

	a.started = true

	return nil
}

func (a *app) finish() {
	if a.sh != nil {
		a.sh.stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *app) printStatus() int {
	// Print warnings if occurred
	for _, w := range a.rv.Warns() {
		fmt.Fprintf(os.Stderr, "WRN: %s\n", w)
	}

	// Print errors if occurred
	for _, e := range a.rv.Errs() {
		fmt.Fprintf(os.Stderr, "ERR: %s\n", e)
	}

	if !a.pc.Quiet && a.summary != "" {
		fmt.Fprintf(a.out, "%s%s\n", tools.Tern(a.rv.OK(), "OK - ", ""), a.summary)
	}

	log.D("%s %s finished", ProgNameLong, ProgVers)
	log.Close()

	if a.rv.OK() && len(a.rv.Warns()) == 0 {
		return ExitOK
	}

	// Something went wrong
	return tools.Tern(len(a.rv.Errs()) != 0,
		ExitErr,	// errors occurred
		ExitWarn)	// only warnings
}
