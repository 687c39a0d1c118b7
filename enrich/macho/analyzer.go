/*
Package macho implements the enrichment module of Mach-O executables.

The module extracts from fat and thin containers the UUID, symbols, strings of
__TEXT sections and dependent libraries, then runs the code signing inspector
to get the signing identifier and the entitlements.
*/
package macho

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/enrich"
	"github.com/r-che/cadfael/types"
)

const (
	ModuleName	=	"x-mach-binary"
	MimeType	=	"application/x-mach-binary"
)

// Report is the full analysis of one file
type Report struct {
	*Info
	*Signature
}

type Analyzer struct {
	inspector	*Inspector
	noInspector	sync.Once
}

// New returns the analyzer which uses codesign as the inspector command, nil - DefaultCodesign
func New(codesign []string) *Analyzer {
	if codesign == nil {
		codesign = DefaultCodesign
	}

	return &Analyzer{inspector: &Inspector{Command: codesign}}
}

// Module returns the enrichment module of the analyzer
func (a *Analyzer) Module() enrich.Module {
	return enrich.Module{
		Name:	ModuleName,
		Predicate: enrich.Predicate{
			{ Path: []string{types.FieldFormat}, Accept: []any{types.FmtFile} },
			{ Path: []string{types.FieldDetails, types.DetMimeType}, Accept: []any{MimeType} },
		},
		Handler:	a.Handle,
	}
}

// Analyze parses the file and inspects its signature. ErrNotMachO is returned
// as is if the file is not a Mach-O container
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("(MachO:Analyze) cannot open %q: %w", path, err)
	}
	defer f.Close()

	info, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("(MachO:Analyze) %q: %w", path, err)
	}

	sig, err := a.inspector.Inspect(ctx, path)
	switch {
		case err == nil:
			// OK
		case errors.Is(err, ErrNoInspector):
			a.noInspector.Do(func() {
				log.W("(MachO:Analyze) Signatures will not be inspected: %v", err)
			})
			sig = &Signature{}
		default:
			return nil, fmt.Errorf("(MachO:Analyze) %q: %w", path, err)
	}

	return &Report{Info: info, Signature: sig}, nil
}

// Handle is the enrichment handler
func (a *Analyzer) Handle(ctx context.Context, rec *types.Inode, path string) error {
	rep, err := a.Analyze(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotMachO) {
			// The detector may be wrong, it is not a failure
			log.D("(MachO:Handle) %v", err)
			return nil
		}
		return err
	}

	for k, v := range rep.Details() {
		rec.Details[k] = v
	}

	return nil
}

// Details returns the report as the inode details, empty values are nil
func (r *Report) Details() types.Details {
	det := types.Details{
		types.DetUUID:			nilIfEmpty(r.UUID),
		types.DetSymbols:		r.Symbols(),
		types.DetStrings:		r.Strings,
		types.DetDylibs:		r.Dylibs,
		types.DetIdentifier:	nilIfEmpty(r.Identifier),
		types.DetEntitlements:	nil,
	}
	if r.Entitlements != nil {
		det[types.DetEntitlements] = r.Entitlements
	}

	return det
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
