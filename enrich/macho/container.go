package macho

import (
	"debug/macho"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/r-che/cadfael/common/tools"
	"github.com/r-che/cadfael/types"
)

var (
	ErrNotMachO		= errors.New("not a Mach-O file")
	ErrMalformed	= errors.New("malformed Mach-O file")
)

const (
	magicFat	=	0xcafebabe

	// Java class files share the fat magic, they are distinguished
	// by the number of architectures which is the class version there
	maxFatArches	=	30

	// Symbol type masks and values
	nStab	=	0xe0
	nType	=	0x0e
	nUndf	=	0x00

	// Load commands are not decoded by debug/macho
	lcUUID				=	0x1b
	lcReqDyld			=	0x80000000
	lcIDDylib			=	0x0d
	lcLoadWeakDylib		=	0x18 | lcReqDyld
	lcReexportDylib		=	0x1f | lcReqDyld
	lcLazyLoadDylib		=	0x20
	lcLoadUpwardDylib	=	0x23 | lcReqDyld

	textSegment	=	"__TEXT"
)

// Kinds of containers
const (
	kindThin = iota + 1
	kindFat
)

// Collected strings of __TEXT sections
const (
	secCString		=	"__cstring"
	secUString		=	"__ustring"
	secObjCMethName	=	"__objc_methname"
	secObjCClassName	=	"__objc_classname"
)

// Info is the structural information of a Mach-O container, all
// lists are de-duplicated and sorted. For fat files the information of all
// architectures is merged
type Info struct {
	UUID		string	// hex encoded, empty if absent
	Local		[]string
	Undef		[]string
	ObjCMethods	[]string
	ObjCClasses	[]string
	Strings		[]string
	Dylibs		[]string
}

// Symbols returns the value of the symbols detail
func (info *Info) Symbols() map[string][]string {
	return map[string][]string{
		types.SymLocal:			info.Local,
		types.SymUndef:			info.Undef,
		types.SymObjCMethods:	info.ObjCMethods,
		types.SymObjCClasses:	info.ObjCClasses,
	}
}

type collector struct {
	uuid		string
	local		tools.Set[string]
	undef		tools.Set[string]
	methods		tools.Set[string]
	classes		tools.Set[string]
	strs		tools.Set[string]
	dylibs		tools.Set[string]
}

func newCollector() *collector {
	return &collector{
		local:		tools.NewSet[string](),
		undef:		tools.NewSet[string](),
		methods:	tools.NewSet[string](),
		classes:	tools.NewSet[string](),
		strs:		tools.NewSet[string](),
		dylibs:		tools.NewSet[string](),
	}
}

func (c *collector) info() *Info {
	return &Info{
		UUID:			c.uuid,
		Local:			c.local.Sorted(),
		Undef:			c.undef.Sorted(),
		ObjCMethods:	c.methods.Sorted(),
		ObjCClasses:	c.classes.Sorted(),
		Strings:		c.strs.Sorted(),
		Dylibs:			c.dylibs.Sorted(),
	}
}

// sniff returns the kind of the container by its magic number, ErrNotMachO if it is not Mach-O
func sniff(r io.ReaderAt) (int, error) {
	var hdr [8]byte
	if n, err := r.ReadAt(hdr[:], 0); n < 4 {
		if err == nil || errors.Is(err, io.EOF) {
			return 0, ErrNotMachO
		}
		return 0, fmt.Errorf("(MachO:sniff) cannot read magic: %w", err)
	}

	be, le := binary.BigEndian.Uint32(hdr[:]), binary.LittleEndian.Uint32(hdr[:])
	for _, magic := range []uint32{be, le} {
		if magic == macho.Magic32 || magic == macho.Magic64 {
			return kindThin, nil
		}
	}

	if be == magicFat {
		if narch := binary.BigEndian.Uint32(hdr[4:]); narch <= maxFatArches {
			return kindFat, nil
		}
	}

	return 0, ErrNotMachO
}

// Parse extracts the structural information from the Mach-O container. ErrNotMachO
// is returned if the magic does not match, ErrMalformed if the parsing failed after that
func Parse(r io.ReaderAt) (*Info, error) {
	kind, err := sniff(r)
	if err != nil {
		return nil, err
	}

	c := newCollector()

	if kind == kindThin {
		f, err := macho.NewFile(r)
		if err != nil {
			return nil, fmt.Errorf("(MachO:Parse) %w: %v", ErrMalformed, err)
		}
		if err := c.collect(f); err != nil {
			return nil, err
		}

		return c.info(), nil
	}

	ff, err := macho.NewFatFile(r)
	if err != nil {
		return nil, fmt.Errorf("(MachO:Parse) %w: %v", ErrMalformed, err)
	}
	for _, arch := range ff.Arches {
		// Information of all architectures is merged, the last seen UUID wins
		if err := c.collect(arch.File); err != nil {
			return nil, err
		}
	}

	return c.info(), nil
}

func (c *collector) collect(f *macho.File) error {
	for _, load := range f.Loads {
		raw := load.Raw()
		if len(raw) < 8 {
			return fmt.Errorf("(MachO:collect) %w: load command of %d bytes", ErrMalformed, len(raw))
		}

		if dl, ok := load.(*macho.Dylib); ok {
			c.dylibs.Add(dl.Name)
			continue
		}

		switch cmd := f.ByteOrder.Uint32(raw[0:4]); cmd {
			case lcUUID:
				if len(raw) < 24 {
					return fmt.Errorf("(MachO:collect) %w: LC_UUID of %d bytes", ErrMalformed, len(raw))
				}
				c.uuid = hex.EncodeToString(raw[8:24])
			case lcIDDylib, lcLoadWeakDylib, lcReexportDylib, lcLazyLoadDylib, lcLoadUpwardDylib:
				name, err := dylibName(f.ByteOrder, raw)
				if err != nil {
					return err
				}
				c.dylibs.Add(name)
		}
	}

	if f.Symtab != nil {
		for _, sym := range f.Symtab.Syms {
			if sym.Type & nStab == 0 && sym.Type & nType == nUndf {
				c.undef.Add(sym.Name)
			} else {
				c.local.Add(sym.Name)
			}
		}
	}

	for _, sec := range f.Sections {
		if sec.Seg != textSegment {
			continue
		}

		var dst tools.Set[string]
		switch sec.Name {
			case secCString, secUString:
				dst = c.strs
			case secObjCMethName:
				dst = c.methods
			case secObjCClassName:
				dst = c.classes
			default:
				continue
		}

		data, err := sec.Data()
		if err != nil {
			return fmt.Errorf("(MachO:collect) %w: cannot read section %s,%s: %v", ErrMalformed, sec.Seg, sec.Name, err)
		}

		if sec.Name == secUString {
			dst.Add(splitUTF16(data, f.ByteOrder)...)
		} else {
			dst.Add(splitNUL(string(data))...)
		}
	}

	return nil
}

// dylibName returns the install name of the dylib command
func dylibName(bo binary.ByteOrder, raw []byte) (string, error) {
	if len(raw) < 24 {
		return "", fmt.Errorf("(MachO:dylibName) %w: dylib command of %d bytes", ErrMalformed, len(raw))
	}

	off := bo.Uint32(raw[8:12])
	if off < 24 || off >= uint32(len(raw)) {
		return "", fmt.Errorf("(MachO:dylibName) %w: invalid dylib name offset %d", ErrMalformed, off)
	}

	name, _, _ := strings.Cut(string(raw[off:]), "\x00")

	return name, nil
}

// splitNUL splits the section content to NUL terminated strings, invalid
// UTF-8 sequences are dropped, empty strings are discarded
func splitNUL(text string) []string {
	out := []string{}
	for _, s := range strings.Split(strings.ToValidUTF8(text, ""), "\x00") {
		if s != "" {
			out = append(out, s)
		}
	}

	return out
}

// splitUTF16 decodes the UTF-16 section content in the byte order of the file
func splitUTF16(data []byte, bo binary.ByteOrder) []string {
	endianness := unicode.LittleEndian
	if bo == binary.ByteOrder(binary.BigEndian) {
		endianness = unicode.BigEndian
	}

	decoded, err := unicode.UTF16(endianness, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		// Nothing usable
		return nil
	}

	// Invalid sequences are decoded as replacement characters
	return splitNUL(strings.ReplaceAll(string(decoded), "\uFFFD", ""))
}
