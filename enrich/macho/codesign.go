package macho

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types"
)

var ErrNoInspector = errors.New("code signing inspector is not available")

const (
	identPrefix	=	"Identifier="
	xmlStart	=	"<?xml"
)

// Default command of the code signing inspector, the inspected path is appended
var DefaultCodesign = []string{"codesign", "-dvvv", "--entitlements", ":-"}

// Inspector runs the code signing inspector command
type Inspector struct {
	Command	[]string
}

// Signature is the result of the code signing inspection,
// empty values mean absence of the information
type Signature struct {
	Identifier		string
	Entitlements	[]types.EntitlementEntry
}

// Inspect runs the inspector on path. Non-zero exit status of the inspector
// means that the path is not signed, the empty signature is returned
func (in *Inspector) Inspect(ctx context.Context, path string) (*Signature, error) {
	if len(in.Command) == 0 {
		return nil, ErrNoInspector
	}

	args := append(append([]string{}, in.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, in.Command[0], args...)

	// Both output streams are parsed
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("(MachO:Inspect) %w: %v", ErrNoInspector, err)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.D("(MachO:Inspect) Inspector exited with status %d on %q, no signature",
				exitErr.ExitCode(), path)
			return &Signature{}, nil
		}

		return nil, fmt.Errorf("(MachO:Inspect) cannot run %q on %q: %w", in.Command[0], path, err)
	}

	return ParseCodesign(out)
}

// ParseCodesign extracts the identifier and the entitlements from the inspector output
func ParseCodesign(out []byte) (*Signature, error) {
	sig := &Signature{}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64 * 1024), len(out) + 1)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, identPrefix) {
			sig.Identifier = strings.TrimSpace(line[len(identPrefix):])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("(MachO:ParseCodesign) cannot read inspector output: %w", err)
	}

	if i := bytes.Index(out, []byte(xmlStart)); i != -1 {
		ents, err := ParseEntitlements(out[i:])
		if err != nil {
			return nil, fmt.Errorf("(MachO:ParseCodesign) invalid entitlements: %w", err)
		}
		sig.Entitlements = ents
	}

	return sig, nil
}
