package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// demoClass builds a two-method class exercising every pool tag the
// builder emits.
func demoClass() *Builder {
	b := NewBuilder("Demo")
	b.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	b.Methodref("java/io/PrintStream", "println", "(I)V")
	b.Integer(42)
	b.AddMethod("main", "([Ljava/lang/String;)V", 2, 1, []byte{0xB1})
	b.AddMethod("add", "(II)I", 2, 2, []byte{0x1A, 0x1B, 0x60, 0xAC})
	return b
}

func TestParseRoundTrip(t *testing.T) {
	data := demoClass().Bytes()
	class, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	if class.MajorVersion != 52 {
		t.Errorf("major version = %d, want 52", class.MajorVersion)
	}
	name, err := class.Name()
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "Demo" {
		t.Errorf("class name = %q, want Demo", name)
	}
	if len(class.Methods) != 2 {
		t.Fatalf("method count = %d, want 2", len(class.Methods))
	}

	m, err := class.FindMethod("add", "(II)I")
	if err != nil {
		t.Fatalf("FindMethod failed: %v", err)
	}
	if m.Code.MaxStack != 2 || m.Code.MaxLocals != 2 {
		t.Errorf("code bounds = (%d, %d), want (2, 2)", m.Code.MaxStack, m.Code.MaxLocals)
	}
	if !bytes.Equal(m.Code.Bytes, []byte{0x1A, 0x1B, 0x60, 0xAC}) {
		t.Errorf("code = % X", m.Code.Bytes)
	}
}

func TestParseViaReader(t *testing.T) {
	data := demoClass().Bytes()
	class, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(class.Methods) != 2 {
		t.Errorf("method count = %d, want 2", len(class.Methods))
	}
}

func TestParseBadMagic(t *testing.T) {
	data := demoClass().Bytes()
	data[0] = 0xDE
	if _, err := ParseBytes(data); !errors.Is(err, ErrBadMagic) {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}
}

func TestParseTruncated(t *testing.T) {
	data := demoClass().Bytes()
	// Chop at a few interesting places: inside the header, inside the
	// pool, inside a method.
	for _, n := range []int{0, 3, 9, 20, len(data) / 2, len(data) - 1} {
		if _, err := ParseBytes(data[:n]); !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("truncated at %d: err = %v, want ErrUnexpectedEOF", n, err)
		}
	}
}

func TestFindMethodNotFound(t *testing.T) {
	class, err := ParseBytes(demoClass().Bytes())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if _, err := class.FindMethod("missing", "()V"); !errors.Is(err, ErrMethodNotFound) {
		t.Errorf("err = %v, want ErrMethodNotFound", err)
	}
}

func TestFindMethodFromIndex(t *testing.T) {
	b := NewBuilder("Demo")
	ref := b.Methodref("Demo", "add", "(II)I")
	b.AddMethod("add", "(II)I", 2, 2, []byte{0x1A, 0x1B, 0x60, 0xAC})
	class, err := ParseBytes(b.Bytes())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	m, err := class.FindMethodFromIndex(ref)
	if err != nil {
		t.Fatalf("FindMethodFromIndex failed: %v", err)
	}
	if m.Name != "add" || m.Descriptor != "(II)I" {
		t.Errorf("resolved %s%s, want add(II)I", m.Name, m.Descriptor)
	}

	// A non-Methodref index is rejected.
	if _, err := class.FindMethodFromIndex(1); !errors.Is(err, ErrWrongConstant) {
		t.Errorf("err = %v, want ErrWrongConstant", err)
	}
	if _, err := class.FindMethodFromIndex(0); !errors.Is(err, ErrBadPoolIndex) {
		t.Errorf("err = %v, want ErrBadPoolIndex", err)
	}
}

func TestIntegerAt(t *testing.T) {
	b := demoClass()
	idx := b.Integer(42)
	class, err := ParseBytes(b.Bytes())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	v, err := class.IntegerAt(idx)
	if err != nil {
		t.Fatalf("IntegerAt failed: %v", err)
	}
	if v != 42 {
		t.Errorf("IntegerAt = %d, want 42", v)
	}
	if _, err := class.IntegerAt(1); !errors.Is(err, ErrWrongConstant) {
		t.Errorf("err = %v, want ErrWrongConstant", err)
	}
}

// rawClass hand-assembles a class file to cover pool tags the builder
// never emits: the decoder must skip them by declared width, and Long
// and Double occupy two slots.
func rawClass(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	w(Magic)
	w(uint16(0))  // minor
	w(uint16(52)) // major

	w(uint16(10)) // pool count: entries 1..9 (slot 6 eaten by the long)
	// 1: Utf8 "Raw"
	w(TagUtf8)
	w(uint16(3))
	buf.WriteString("Raw")
	// 2: Class -> 1
	w(TagClass)
	w(uint16(1))
	// 3: Utf8 "java/lang/Object"
	w(TagUtf8)
	w(uint16(16))
	buf.WriteString("java/lang/Object")
	// 4: Class -> 3
	w(TagClass)
	w(uint16(3))
	// 5: Long (occupies slots 5 and 6)
	w(TagLong)
	w(uint64(0x0102030405060708))
	// 7: String -> 1
	w(TagString)
	w(uint16(1))
	// 8: Float
	w(TagFloat)
	w(uint32(0x3F800000))
	// 9: MethodHandle
	w(TagMethodHandle)
	w(uint8(6))
	w(uint16(2))

	w(uint16(0x0021)) // access flags
	w(uint16(2))      // this_class
	w(uint16(4))      // super_class
	w(uint16(1))      // one interface, discarded
	w(uint16(4))
	w(uint16(1)) // one field, discarded
	w(uint16(0x0002))
	w(uint16(1))
	w(uint16(1))
	w(uint16(0)) // no field attributes
	w(uint16(0)) // no methods
	w(uint16(0)) // no class attributes

	return buf.Bytes()
}

func TestParseSkipsUnusedTags(t *testing.T) {
	class, err := ParseBytes(rawClass(t))
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	name, err := class.Name()
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "Raw" {
		t.Errorf("class name = %q, want Raw", name)
	}
	if class.Pool[5].Tag != TagLong {
		t.Errorf("slot 5 tag = %d, want Long", class.Pool[5].Tag)
	}
	// Slot 6 is the long's shadow slot; 7 must still be the String.
	if class.Pool[7].Tag != TagString {
		t.Errorf("slot 7 tag = %d, want String", class.Pool[7].Tag)
	}
}

func TestParseUnknownTag(t *testing.T) {
	data := rawClass(t)
	// First pool entry's tag byte sits right after the 8-byte header
	// and the 2-byte pool count.
	data[10] = 99
	if _, err := ParseBytes(data); !errors.Is(err, ErrMalformedClass) {
		t.Errorf("err = %v, want ErrMalformedClass", err)
	}
}
