package macho

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r-che/cadfael/enrich/macho/machotest"
)

func utf16LE(s string) []byte {
	out := []byte{}
	for _, u := range utf16.Encode([]rune(s)) {
		out = binary.LittleEndian.AppendUint16(out, u)
	}
	return out
}

func testBinary() *machotest.Binary {
	ustr := append(utf16LE("Uni"), 0, 0)
	ustr = append(ustr, utf16LE("Code")...)

	return &machotest.Binary{
		UUID:	[]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		Dylibs:	[]string{"/usr/lib/libSystem.B.dylib", "/usr/lib/libobjc.A.dylib"},
		Sections: []machotest.Section{
			{ Name: "__text", Data: []byte{0x90, 0x90, 0xc3} },
			{ Name: secCString, Data: machotest.NulJoined("hello", "", "world", "hello") },
			{ Name: secUString, Data: ustr },
			{ Name: secObjCMethName, Data: machotest.NulJoined("init", "dealloc") },
			{ Name: secObjCClassName, Data: machotest.NulJoined("AppDelegate") },
		},
		Symbols: []machotest.Symbol{
			{ Name: "_main", Type: 0x0f },		// N_SECT | N_EXT
			{ Name: "_printf", Type: 0x01 },	// N_UNDF | N_EXT
			{ Name: "_helper", Type: 0x0e },	// N_SECT
			{ Name: "_stabsym", Type: 0x24 },	// N_FUN
		},
	}
}

func TestParseThin(t *testing.T) {
	info, err := Parse(bytes.NewReader(machotest.Thin64(testBinary())))
	require.NoError(t, err)

	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", info.UUID)
	assert.Equal(t, []string{"_helper", "_main", "_stabsym"}, info.Local)
	assert.Equal(t, []string{"_printf"}, info.Undef)
	assert.Equal(t, []string{"/usr/lib/libSystem.B.dylib", "/usr/lib/libobjc.A.dylib"}, info.Dylibs)
	assert.Equal(t, []string{"Code", "Uni", "hello", "world"}, info.Strings)
	assert.Equal(t, []string{"dealloc", "init"}, info.ObjCMethods)
	assert.Equal(t, []string{"AppDelegate"}, info.ObjCClasses)
}

func TestParseLocalAndUndef(t *testing.T) {
	info, err := Parse(bytes.NewReader(machotest.Thin64(&machotest.Binary{
		Symbols: []machotest.Symbol{
			{ Name: "_defined", Type: 0x0f },
			{ Name: "_external", Type: 0x01 },
		},
	})))
	require.NoError(t, err)

	assert.Equal(t, []string{"_defined"}, info.Local)
	assert.Equal(t, []string{"_external"}, info.Undef)
	assert.Empty(t, info.UUID)
	assert.Empty(t, info.Strings)
	assert.NotNil(t, info.Dylibs)
}

func TestParseFat(t *testing.T) {
	amd := testBinary()
	arm := &machotest.Binary{
		CPU:	machotest.CPUArm64,
		UUID:	bytes.Repeat([]byte{0xff}, 16),
		Dylibs:	[]string{"/usr/lib/libc++.1.dylib"},
		Symbols: []machotest.Symbol{{ Name: "_arm_only", Type: 0x0f }},
	}

	fat := machotest.Fat(
		machotest.Arch{ CPU: machotest.CPUAmd64, Data: machotest.Thin64(amd) },
		machotest.Arch{ CPU: machotest.CPUArm64, Data: machotest.Thin64(arm) },
	)

	info, err := Parse(bytes.NewReader(fat))
	require.NoError(t, err)

	// Last seen UUID wins
	assert.Equal(t, "ffffffffffffffffffffffffffffffff", info.UUID)
	assert.Equal(t, []string{"/usr/lib/libSystem.B.dylib", "/usr/lib/libc++.1.dylib", "/usr/lib/libobjc.A.dylib"}, info.Dylibs)
	assert.Contains(t, info.Local, "_arm_only")
	assert.Contains(t, info.Local, "_main")
}

func TestParseNotMachO(t *testing.T) {
	javaClass := []byte{0xca, 0xfe, 0xba, 0xbe, 0x00, 0x00, 0x00, 0x34, 0x00, 0x10}

	tests := []struct {
		name	string
		data	[]byte
	} {
		{ "empty", nil },
		{ "short", []byte{0xcf, 0xfa} },
		{ "text", []byte("hi there, plain text") },
		{ "java-class", javaClass },
	}

	for _, test := range tests {
		_, err := Parse(bytes.NewReader(test.data))
		assert.True(t, errors.Is(err, ErrNotMachO), "%s: got %v", test.name, err)
		assert.False(t, errors.Is(err, ErrMalformed), test.name)
	}
}

func TestParseMalformed(t *testing.T) {
	data := machotest.Thin64(testBinary())

	_, err := Parse(bytes.NewReader(data[:20]))
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
	assert.False(t, errors.Is(err, ErrNotMachO))

	// Fat magic with no images
	_, err = Parse(bytes.NewReader([]byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 0}))
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestSplitNUL(t *testing.T) {
	tests := []struct {
		in		string
		want	[]string
	} {
		{ "", []string{} },
		{ "\x00\x00", []string{} },
		{ "one", []string{"one"} },
		{ "\x00a\x00\x00b\x00", []string{"a", "b"} },
		{ "ok\x00bad\xff\xfeseq\x00", []string{"ok", "badseq"} },
	}

	for _, test := range tests {
		assert.Equal(t, test.want, splitNUL(test.in), "input %q", test.in)
	}
}

func TestSplitUTF16(t *testing.T) {
	le := append(utf16LE("first"), 0, 0, 0, 0)
	le = append(le, utf16LE("second")...)
	assert.Equal(t, []string{"first", "second"}, splitUTF16(le, binary.LittleEndian))

	be := []byte{0, 'h', 0, 'i', 0, 0}
	assert.Equal(t, []string{"hi"}, splitUTF16(be, binary.BigEndian))

	// Lone surrogate is dropped
	bad := append(utf16LE("x"), 0x00, 0xd8)
	bad = append(bad, utf16LE("y")...)
	assert.Equal(t, []string{"xy"}, splitUTF16(bad, binary.LittleEndian))
}
