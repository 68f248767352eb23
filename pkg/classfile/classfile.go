package classfile

import (
	"errors"
	"fmt"
)

// Magic is the four-byte signature every class file begins with.
const Magic uint32 = 0xCAFEBABE

// Constant pool tags (JVMS §4.4). The decoder materializes the tags the
// interpreter consumes and skips the rest by their declared width.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// ---------------------------------------------------------------------------
// Error Types
// ---------------------------------------------------------------------------

var (
	ErrBadMagic       = errors.New("bad magic: expected 0xCAFEBABE")
	ErrMalformedClass = errors.New("malformed class file")
	ErrUnexpectedEOF  = errors.New("unexpected end of class file")
	ErrBadPoolIndex   = errors.New("constant pool index out of range")
	ErrWrongConstant  = errors.New("constant has unexpected tag")
	ErrMethodNotFound = errors.New("method not found")
	ErrNoCode         = errors.New("method has no Code attribute")
)

// ---------------------------------------------------------------------------
// Class: the parsed, in-memory form of a class file
// ---------------------------------------------------------------------------

// Constant is one constant pool entry. Only the fields relevant to the
// entry's tag are populated.
type Constant struct {
	Tag uint8

	Utf8    string // TagUtf8
	Integer int32  // TagInteger

	// Index fields, meaning depends on Tag:
	//   TagClass:       Index1 = name index
	//   TagNameAndType: Index1 = name index, Index2 = descriptor index
	//   TagMethodref,
	//   TagFieldref:    Index1 = class index, Index2 = name-and-type index
	Index1 uint16
	Index2 uint16
}

// Code is a method's Code attribute: the bytecode plus the frame bounds
// the interpreter sizes its operand stack and locals from.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16
	Bytes     []byte
}

// Method is one method of a class.
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Code        Code
}

// Class is the immutable image of a parsed class file. The constant pool
// is kept 1-indexed as in the format: Pool[0] is a reserved zero entry so
// pool indices read from bytecode resolve without adjustment.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         []Constant
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Methods      []Method
}

// Constant returns the pool entry at index, which is 1-based.
func (c *Class) Constant(index uint16) (*Constant, error) {
	if index == 0 || int(index) >= len(c.Pool) {
		return nil, fmt.Errorf("index %d of %d: %w", index, len(c.Pool)-1, ErrBadPoolIndex)
	}
	return &c.Pool[index], nil
}

// Utf8At returns the UTF-8 string at the given pool index.
func (c *Class) Utf8At(index uint16) (string, error) {
	ct, err := c.Constant(index)
	if err != nil {
		return "", err
	}
	if ct.Tag != TagUtf8 {
		return "", fmt.Errorf("index %d: tag %d, want Utf8: %w", index, ct.Tag, ErrWrongConstant)
	}
	return ct.Utf8, nil
}

// IntegerAt returns the integer constant at the given pool index.
func (c *Class) IntegerAt(index uint16) (int32, error) {
	ct, err := c.Constant(index)
	if err != nil {
		return 0, err
	}
	if ct.Tag != TagInteger {
		return 0, fmt.Errorf("index %d: tag %d, want Integer: %w", index, ct.Tag, ErrWrongConstant)
	}
	return ct.Integer, nil
}

// Name returns this class's own name, resolved through this_class.
func (c *Class) Name() (string, error) {
	ct, err := c.Constant(c.ThisClass)
	if err != nil {
		return "", err
	}
	if ct.Tag != TagClass {
		return "", fmt.Errorf("this_class %d: tag %d, want Class: %w", c.ThisClass, ct.Tag, ErrWrongConstant)
	}
	return c.Utf8At(ct.Index1)
}

// FindMethod returns the unique method matching (name, descriptor).
func (c *Class) FindMethod(name, descriptor string) (*Method, error) {
	for i := range c.Methods {
		m := &c.Methods[i]
		if m.Name == name && m.Descriptor == descriptor {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%s%s: %w", name, descriptor, ErrMethodNotFound)
}

// FindMethodFromIndex resolves a Methodref pool entry to its target
// method. Only same-class targets exist in the programs this core runs,
// so resolution never leaves the receiver.
func (c *Class) FindMethodFromIndex(index uint16) (*Method, error) {
	ref, err := c.Constant(index)
	if err != nil {
		return nil, err
	}
	if ref.Tag != TagMethodref {
		return nil, fmt.Errorf("index %d: tag %d, want Methodref: %w", index, ref.Tag, ErrWrongConstant)
	}
	nat, err := c.Constant(ref.Index2)
	if err != nil {
		return nil, err
	}
	if nat.Tag != TagNameAndType {
		return nil, fmt.Errorf("index %d: tag %d, want NameAndType: %w", ref.Index2, nat.Tag, ErrWrongConstant)
	}
	name, err := c.Utf8At(nat.Index1)
	if err != nil {
		return nil, err
	}
	descriptor, err := c.Utf8At(nat.Index2)
	if err != nil {
		return nil, err
	}
	return c.FindMethod(name, descriptor)
}
