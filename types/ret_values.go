package types

import (
	"fmt"
	"strings"
)

// Command return value. During a crawl each worker owns its own
// value, values are merged by the pool when workers are finished
type CmdRV struct {
	inserted	int64
	merged		int64
	skipped		int64
	errs		[]string
	wrns		[]string
}

func NewCmdRV() *CmdRV {
	return &CmdRV{}
}

func (rv *CmdRV) AddErr(args ...any) *CmdRV {
	appendMsg(&rv.errs, args...)
	return rv
}

func (rv *CmdRV) AddWarn(args ...any) *CmdRV {
	appendMsg(&rv.wrns, args...)
	return rv
}

func (rv *CmdRV) AddInserted(v int64) *CmdRV {
	rv.inserted += v
	return rv
}

func (rv *CmdRV) AddMerged(v int64) *CmdRV {
	rv.merged += v
	return rv
}

func (rv *CmdRV) AddSkipped(v int64) *CmdRV {
	rv.skipped += v
	return rv
}

func (rv *CmdRV) Inserted() int64 {
	return rv.inserted
}

func (rv *CmdRV) Merged() int64 {
	return rv.merged
}

func (rv *CmdRV) Skipped() int64 {
	return rv.skipped
}

func (rv *CmdRV) Errs() []string {
	return rv.errs
}

func (rv *CmdRV) Warns() []string {
	return rv.wrns
}

func (rv *CmdRV) OK() bool {
	return len(rv.errs) == 0
}

// Merge adds counters and messages of other values to rv
func (rv *CmdRV) Merge(others ...*CmdRV) *CmdRV {
	for _, o := range others {
		if o == nil {
			continue
		}
		rv.inserted += o.inserted
		rv.merged += o.merged
		rv.skipped += o.skipped
		rv.errs = append(rv.errs, o.errs...)
		rv.wrns = append(rv.wrns, o.wrns...)
	}

	return rv
}

func (rv *CmdRV) ErrsJoin(sep string) error {
	if rv.errs == nil {
		return nil
	}

	return fmt.Errorf("%s", strings.Join(rv.errs, sep))
}

func (rv *CmdRV) String() string {
	return fmt.Sprintf("%d inserted, %d merged, %d skipped, %d errors, %d warnings",
		rv.inserted, rv.merged, rv.skipped, len(rv.errs), len(rv.wrns))
}

/*
 * Auxiliary functions
 */

func appendMsg(list *[]string, args ...any) {
	switch len(args) {
		case 0:
			// Do nothing
		case 1:
			(*list) = append(*list, fmt.Sprintf("%v", args[0]))
		default:
			if format, ok := args[0].(string); ok {
				(*list) = append(*list, fmt.Sprintf(format, args[1:]...))
			} else {
				// Invalid value provided as format
				(*list) = append(*list, fmt.Sprintf("!s(%v) %v", args[0], args[1:]))
			}
	}
}
