package classfile

import (
	"bytes"
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Builder: programmatic class file construction
// ---------------------------------------------------------------------------

// Default version stamp for built class files: 52.0 (Java 8), old enough
// that nothing downstream cares.
const (
	builtMinorVersion uint16 = 0
	builtMajorVersion uint16 = 52
)

// Builder constructs a well-formed class file image in memory. It is the
// encoder mirror of Parse: fixtures and tooling assemble constants and
// methods, then call Bytes for the big-endian serialized form.
//
// Pool entries are interned, so repeated lookups of the same constant
// return the same index.
type Builder struct {
	pool []Constant // 1-indexed, pool[0] reserved

	utf8Index    map[string]uint16
	integerIndex map[int32]uint16
	classIndex   map[uint16]uint16    // name index -> class index
	natIndex     map[[2]uint16]uint16 // (name, descriptor) -> name-and-type index
	refIndex     map[[2]uint16]uint16 // (class, nat) -> methodref index

	thisClass  uint16
	superClass uint16
	methods    []builderMethod
}

type builderMethod struct {
	accessFlags uint16
	nameIndex   uint16
	descIndex   uint16
	maxStack    uint16
	maxLocals   uint16
	code        []byte
}

// NewBuilder creates a builder for a class with the given name. The
// superclass is fixed to java/lang/Object.
func NewBuilder(name string) *Builder {
	b := &Builder{
		pool:         make([]Constant, 1),
		utf8Index:    make(map[string]uint16),
		integerIndex: make(map[int32]uint16),
		classIndex:   make(map[uint16]uint16),
		natIndex:     make(map[[2]uint16]uint16),
		refIndex:     make(map[[2]uint16]uint16),
	}
	b.thisClass = b.ClassRef(name)
	b.superClass = b.ClassRef("java/lang/Object")
	return b
}

func (b *Builder) add(ct Constant) uint16 {
	b.pool = append(b.pool, ct)
	return uint16(len(b.pool) - 1)
}

// Utf8 interns a UTF-8 constant and returns its pool index.
func (b *Builder) Utf8(s string) uint16 {
	if idx, ok := b.utf8Index[s]; ok {
		return idx
	}
	idx := b.add(Constant{Tag: TagUtf8, Utf8: s})
	b.utf8Index[s] = idx
	return idx
}

// Integer interns a 32-bit integer constant and returns its pool index.
func (b *Builder) Integer(v int32) uint16 {
	if idx, ok := b.integerIndex[v]; ok {
		return idx
	}
	idx := b.add(Constant{Tag: TagInteger, Integer: v})
	b.integerIndex[v] = idx
	return idx
}

// ClassRef interns a class reference by name.
func (b *Builder) ClassRef(name string) uint16 {
	nameIdx := b.Utf8(name)
	if idx, ok := b.classIndex[nameIdx]; ok {
		return idx
	}
	idx := b.add(Constant{Tag: TagClass, Index1: nameIdx})
	b.classIndex[nameIdx] = idx
	return idx
}

// NameAndType interns a (name, descriptor) pair.
func (b *Builder) NameAndType(name, descriptor string) uint16 {
	key := [2]uint16{b.Utf8(name), b.Utf8(descriptor)}
	if idx, ok := b.natIndex[key]; ok {
		return idx
	}
	idx := b.add(Constant{Tag: TagNameAndType, Index1: key[0], Index2: key[1]})
	b.natIndex[key] = idx
	return idx
}

// Methodref interns a method reference.
func (b *Builder) Methodref(class, name, descriptor string) uint16 {
	key := [2]uint16{b.ClassRef(class), b.NameAndType(name, descriptor)}
	if idx, ok := b.refIndex[key]; ok {
		return idx
	}
	idx := b.add(Constant{Tag: TagMethodref, Index1: key[0], Index2: key[1]})
	b.refIndex[key] = idx
	return idx
}

// Fieldref interns a field reference. Emitted before println calls the
// same way javac emits the System.out getstatic operand.
func (b *Builder) Fieldref(class, name, descriptor string) uint16 {
	classIdx := b.ClassRef(class)
	natIdx := b.NameAndType(name, descriptor)
	for i, ct := range b.pool {
		if ct.Tag == TagFieldref && ct.Index1 == classIdx && ct.Index2 == natIdx {
			return uint16(i)
		}
	}
	return b.add(Constant{Tag: TagFieldref, Index1: classIdx, Index2: natIdx})
}

// AddMethod appends a static method with the given code.
func (b *Builder) AddMethod(name, descriptor string, maxStack, maxLocals uint16, code []byte) {
	b.methods = append(b.methods, builderMethod{
		accessFlags: 0x0009, // ACC_PUBLIC | ACC_STATIC
		nameIndex:   b.Utf8(name),
		descIndex:   b.Utf8(descriptor),
		maxStack:    maxStack,
		maxLocals:   maxLocals,
		code:        code,
	})
}

// Bytes serializes the class to the on-disk big-endian format.
func (b *Builder) Bytes() []byte {
	// The Code attribute name must be in the pool before the count is
	// written.
	codeAttr := b.Utf8("Code")

	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.BigEndian, v) }

	w(Magic)
	w(builtMinorVersion)
	w(builtMajorVersion)

	w(uint16(len(b.pool)))
	for _, ct := range b.pool[1:] {
		w(ct.Tag)
		switch ct.Tag {
		case TagUtf8:
			w(uint16(len(ct.Utf8)))
			buf.WriteString(ct.Utf8)
		case TagInteger:
			w(uint32(ct.Integer))
		case TagClass:
			w(ct.Index1)
		case TagNameAndType, TagFieldref, TagMethodref:
			w(ct.Index1)
			w(ct.Index2)
		}
	}

	w(uint16(0x0021)) // ACC_PUBLIC | ACC_SUPER
	w(b.thisClass)
	w(b.superClass)
	w(uint16(0)) // interfaces
	w(uint16(0)) // fields

	w(uint16(len(b.methods)))
	for _, m := range b.methods {
		w(m.accessFlags)
		w(m.nameIndex)
		w(m.descIndex)
		w(uint16(1)) // one attribute: Code

		w(codeAttr)
		// max_stack(2) + max_locals(2) + code_length(4) + code +
		// exception_table_length(2) + attributes_count(2)
		w(uint32(12 + len(m.code)))
		w(m.maxStack)
		w(m.maxLocals)
		w(uint32(len(m.code)))
		buf.Write(m.code)
		w(uint16(0)) // exception table
		w(uint16(0)) // nested attributes
	}

	w(uint16(0)) // class attributes

	return buf.Bytes()
}
