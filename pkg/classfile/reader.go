package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ---------------------------------------------------------------------------
// reader: cursor over the raw class file bytes
// ---------------------------------------------------------------------------

// reader walks the class file bytes with an explicit offset so every
// read can report where the stream ran short.
type reader struct {
	data   []byte
	offset int
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) u8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("at offset %d: %w", r.offset, ErrUnexpectedEOF)
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, fmt.Errorf("at offset %d: %w", r.offset, ErrUnexpectedEOF)
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("at offset %d: %w", r.offset, ErrUnexpectedEOF)
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("at offset %d, need %d bytes: %w", r.offset, n, ErrUnexpectedEOF)
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

// ---------------------------------------------------------------------------
// Parse
// ---------------------------------------------------------------------------

// Parse decodes a class file from the stream into an immutable Class.
// The returned image owns all of its data; the input may be discarded.
func Parse(stream io.Reader) (*Class, error) {
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading class file: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes decodes a class file held in memory.
func ParseBytes(data []byte) (*Class, error) {
	r := &reader{data: data}

	magic, err := r.u32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("got 0x%08X: %w", magic, ErrBadMagic)
	}

	c := &Class{}
	if c.MinorVersion, err = r.u16(); err != nil {
		return nil, err
	}
	if c.MajorVersion, err = r.u16(); err != nil {
		return nil, err
	}

	if err := readConstantPool(r, c); err != nil {
		return nil, err
	}

	if c.AccessFlags, err = r.u16(); err != nil {
		return nil, err
	}
	if c.ThisClass, err = r.u16(); err != nil {
		return nil, err
	}
	if c.SuperClass, err = r.u16(); err != nil {
		return nil, err
	}

	// Interfaces: count consumed, contents discarded.
	ifaceCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	if err := r.skip(2 * int(ifaceCount)); err != nil {
		return nil, err
	}

	// Fields: consumed and discarded. A field entry has the same outer
	// shape as a method entry, so the attribute skipper is shared.
	fieldCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		if err := skipMember(r); err != nil {
			return nil, err
		}
	}

	if err := readMethods(r, c); err != nil {
		return nil, err
	}

	// Class attributes (SourceFile and friends): consumed, discarded.
	attrCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		if err := skipAttribute(r); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func readConstantPool(r *reader, c *Class) error {
	count, err := r.u16()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("constant pool count 0: %w", ErrMalformedClass)
	}

	// The pool is 1-indexed; entry 0 stays a reserved zero value.
	c.Pool = make([]Constant, count)
	for i := uint16(1); i < count; i++ {
		tag, err := r.u8()
		if err != nil {
			return err
		}
		ct := &c.Pool[i]
		ct.Tag = tag

		switch tag {
		case TagUtf8:
			length, err := r.u16()
			if err != nil {
				return err
			}
			raw, err := r.bytes(int(length))
			if err != nil {
				return err
			}
			ct.Utf8 = string(raw)

		case TagInteger:
			v, err := r.u32()
			if err != nil {
				return err
			}
			ct.Integer = int32(v)

		case TagClass:
			if ct.Index1, err = r.u16(); err != nil {
				return err
			}

		case TagNameAndType, TagFieldref, TagMethodref, TagInterfaceMethodref:
			if ct.Index1, err = r.u16(); err != nil {
				return err
			}
			if ct.Index2, err = r.u16(); err != nil {
				return err
			}

		// Entries the core never dereferences are consumed by their
		// declared width so the cursor stays aligned.
		case TagFloat:
			if err := r.skip(4); err != nil {
				return err
			}

		case TagLong, TagDouble:
			if err := r.skip(8); err != nil {
				return err
			}
			// 8-byte constants occupy two pool slots (JVMS §4.4.5).
			i++

		case TagString, TagMethodType, TagModule, TagPackage:
			if err := r.skip(2); err != nil {
				return err
			}

		case TagMethodHandle:
			if err := r.skip(3); err != nil {
				return err
			}

		case TagDynamic, TagInvokeDynamic:
			if err := r.skip(4); err != nil {
				return err
			}

		default:
			return fmt.Errorf("constant %d has unknown tag %d: %w", i, tag, ErrMalformedClass)
		}
	}
	return nil
}

// skipMember consumes a field_info entry, attributes included.
func skipMember(r *reader) error {
	// access_flags, name_index, descriptor_index
	if err := r.skip(6); err != nil {
		return err
	}
	attrCount, err := r.u16()
	if err != nil {
		return err
	}
	for i := 0; i < int(attrCount); i++ {
		if err := skipAttribute(r); err != nil {
			return err
		}
	}
	return nil
}

func skipAttribute(r *reader) error {
	if err := r.skip(2); err != nil { // attribute_name_index
		return err
	}
	length, err := r.u32()
	if err != nil {
		return err
	}
	return r.skip(int(length))
}

func readMethods(r *reader, c *Class) error {
	count, err := r.u16()
	if err != nil {
		return err
	}
	c.Methods = make([]Method, 0, count)
	for i := 0; i < int(count); i++ {
		m, err := readMethod(r, c)
		if err != nil {
			return err
		}
		c.Methods = append(c.Methods, m)
	}
	return nil
}

func readMethod(r *reader, c *Class) (Method, error) {
	var m Method

	flags, err := r.u16()
	if err != nil {
		return m, err
	}
	m.AccessFlags = flags

	nameIndex, err := r.u16()
	if err != nil {
		return m, err
	}
	if m.Name, err = c.Utf8At(nameIndex); err != nil {
		return m, fmt.Errorf("method name: %w", err)
	}

	descIndex, err := r.u16()
	if err != nil {
		return m, err
	}
	if m.Descriptor, err = c.Utf8At(descIndex); err != nil {
		return m, fmt.Errorf("method descriptor: %w", err)
	}

	attrCount, err := r.u16()
	if err != nil {
		return m, err
	}
	haveCode := false
	for i := 0; i < int(attrCount); i++ {
		attrName, err := r.u16()
		if err != nil {
			return m, err
		}
		length, err := r.u32()
		if err != nil {
			return m, err
		}
		name, err := c.Utf8At(attrName)
		if err != nil {
			return m, fmt.Errorf("attribute name: %w", err)
		}
		if name != "Code" {
			if err := r.skip(int(length)); err != nil {
				return m, err
			}
			continue
		}
		if err := readCode(r, &m.Code); err != nil {
			return m, fmt.Errorf("method %s: %w", m.Name, err)
		}
		haveCode = true
	}
	if !haveCode {
		return m, fmt.Errorf("method %s: %w", m.Name, ErrNoCode)
	}
	return m, nil
}

func readCode(r *reader, code *Code) error {
	var err error
	if code.MaxStack, err = r.u16(); err != nil {
		return err
	}
	if code.MaxLocals, err = r.u16(); err != nil {
		return err
	}
	length, err := r.u32()
	if err != nil {
		return err
	}
	raw, err := r.bytes(int(length))
	if err != nil {
		return err
	}
	// Copy out of the input buffer so the Class owns its code.
	code.Bytes = append([]byte(nil), raw...)

	// Exception table: consumed, discarded. An entry is four u16s.
	excCount, err := r.u16()
	if err != nil {
		return err
	}
	if err := r.skip(8 * int(excCount)); err != nil {
		return err
	}

	// Nested attributes (LineNumberTable and friends): consumed, discarded.
	attrCount, err := r.u16()
	if err != nil {
		return err
	}
	for i := 0; i < int(attrCount); i++ {
		if err := skipAttribute(r); err != nil {
			return err
		}
	}
	return nil
}
