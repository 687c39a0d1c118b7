/*
Package machotest builds minimal Mach-O containers in memory for tests.
*/
package machotest

import (
	"bytes"
	"encoding/binary"
)

const (
	magic64		=	0xfeedfacf
	magicFat	=	0xcafebabe

	CPUAmd64	=	0x01000007
	CPUArm64	=	0x0100000c

	lcSegment64	=	0x19
	lcSymtab	=	0x2
	lcLoadDylib	=	0xc
	lcUUID		=	0x1b

	segmentSize	=	72
	sectionSize	=	80
	headerSize	=	32
	nlistSize	=	16

	textVMAddr	=	0x100000000
)

// Symbol of the symbol table, Type is the n_type value
type Symbol struct {
	Name	string
	Type	uint8
}

// Section of the __TEXT segment with raw content
type Section struct {
	Name	string
	Data	[]byte
}

// Binary describes the content of a thin 64-bit little-endian executable
type Binary struct {
	CPU			uint32	// 0 - CPUAmd64
	UUID		[]byte	// nil - no LC_UUID command
	Dylibs		[]string
	Sections	[]Section
	Symbols		[]Symbol
}

// NulJoined returns strings joined and terminated by NUL bytes as they are stored in sections
func NulJoined(strs ...string) []byte {
	buf := bytes.Buffer{}
	for _, s := range strs {
		buf.WriteString(s)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// Thin64 builds the executable described by s
func Thin64(s *Binary) []byte {
	bo := binary.LittleEndian
	cpu := s.CPU
	if cpu == 0 {
		cpu = CPUAmd64
	}

	// Calculate sizes of load commands
	segCmdSize := segmentSize + sectionSize * len(s.Sections)
	dylibSizes := make([]int, len(s.Dylibs))
	cmdsSize := segCmdSize
	ncmds := 1
	if s.UUID != nil {
		cmdsSize += 24
		ncmds++
	}
	for i, name := range s.Dylibs {
		dylibSizes[i] = align(24 + len(name) + 1, 8)
		cmdsSize += dylibSizes[i]
		ncmds++
	}
	cmdsSize += 24	// LC_SYMTAB
	ncmds++

	// Layout of data following the load commands
	offset := headerSize + cmdsSize
	secOffsets := make([]int, len(s.Sections))
	for i, sec := range s.Sections {
		secOffsets[i] = offset
		offset += len(sec.Data)
	}
	symOff := align(offset, 8)
	strtab := []byte{' ', 0}	// names never start at offset 0
	strIdx := make([]int, len(s.Symbols))
	for i, sym := range s.Symbols {
		strIdx[i] = len(strtab)
		strtab = append(strtab, sym.Name...)
		strtab = append(strtab, 0)
	}
	strOff := symOff + nlistSize * len(s.Symbols)
	total := strOff + len(strtab)

	out := make([]byte, total)
	w := &writer{buf: out, bo: bo}

	// Header
	w.u32(magic64); w.u32(cpu); w.u32(3); w.u32(2)
	w.u32(uint32(ncmds)); w.u32(uint32(cmdsSize)); w.u32(0); w.u32(0)

	// Segment with sections
	w.u32(lcSegment64); w.u32(uint32(segCmdSize)); w.name("__TEXT")
	w.u64(textVMAddr); w.u64(uint64(total)); w.u64(0); w.u64(uint64(total))
	w.u32(5); w.u32(5); w.u32(uint32(len(s.Sections))); w.u32(0)
	for i, sec := range s.Sections {
		w.name(sec.Name); w.name("__TEXT")
		w.u64(textVMAddr + uint64(secOffsets[i])); w.u64(uint64(len(sec.Data)))
		w.u32(uint32(secOffsets[i])); w.u32(0); w.u32(0); w.u32(0)
		w.u32(0); w.u32(0); w.u32(0); w.u32(0)
	}

	if s.UUID != nil {
		w.u32(lcUUID); w.u32(24)
		copy(out[w.off:], s.UUID[:16])
		w.off += 16
	}

	for i, name := range s.Dylibs {
		start := w.off
		w.u32(lcLoadDylib); w.u32(uint32(dylibSizes[i])); w.u32(24); w.u32(2); w.u32(0x10000); w.u32(0x10000)
		copy(out[w.off:], name)
		// Rest of the command is NUL padding
		w.off = start + dylibSizes[i]
	}

	w.u32(lcSymtab); w.u32(24); w.u32(uint32(symOff)); w.u32(uint32(len(s.Symbols)))
	w.u32(uint32(strOff)); w.u32(uint32(len(strtab)))

	for i, sec := range s.Sections {
		copy(out[secOffsets[i]:], sec.Data)
	}

	w.off = symOff
	for i, sym := range s.Symbols {
		w.u32(uint32(strIdx[i]))
		out[w.off] = sym.Type
		out[w.off + 1] = 1	// n_sect
		w.off += 4			// n_type, n_sect, n_desc
		w.u64(textVMAddr)
	}

	copy(out[strOff:], strtab)

	return out
}

// Arch is one image of the fat file
type Arch struct {
	CPU		uint32
	Data	[]byte
}

// Fat builds the universal binary from the images, CPU types must be distinct
func Fat(arches ...Arch) []byte {
	const fatArchSize = 20
	const alignBits = 12

	bo := binary.BigEndian

	offset := align(8 + fatArchSize * len(arches), 1 << alignBits)
	offsets := make([]int, len(arches))
	for i, a := range arches {
		offsets[i] = offset
		offset = align(offset + len(a.Data), 1 << alignBits)
	}

	out := make([]byte, offset)
	w := &writer{buf: out, bo: bo}
	w.u32(magicFat); w.u32(uint32(len(arches)))
	for i, a := range arches {
		w.u32(a.CPU); w.u32(3); w.u32(uint32(offsets[i])); w.u32(uint32(len(a.Data))); w.u32(alignBits)
		copy(out[offsets[i]:], a.Data)
	}

	return out
}

func align(n, a int) int {
	return (n + a - 1) / a * a
}

type writer struct {
	buf	[]byte
	off	int
	bo	binary.ByteOrder
}

func (w *writer) u32(v uint32) {
	w.bo.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) u64(v uint64) {
	w.bo.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

// name writes 16 bytes NUL padded name of a segment or a section
func (w *writer) name(s string) {
	copy(w.buf[w.off:w.off + 16], s)
	w.off += 16
}
