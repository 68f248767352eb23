package interp

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/chazu/teenyjvm/pkg/classfile"
)

// Disassemble returns a human-readable listing of every method in the
// class.
func Disassemble(class *classfile.Class) string {
	var sb strings.Builder
	if name, err := class.Name(); err == nil {
		sb.WriteString(fmt.Sprintf("; === class %s (version %d.%d) ===\n\n",
			name, class.MajorVersion, class.MinorVersion))
	}
	for i := range class.Methods {
		sb.WriteString(DisassembleMethod(class, &class.Methods[i]))
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleMethod returns a listing of one method's bytecode.
func DisassembleMethod(class *classfile.Class, method *classfile.Method) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; === %s%s ===\n", method.Name, method.Descriptor))
	sb.WriteString(fmt.Sprintf("; max_stack=%d, max_locals=%d, code_length=%d\n",
		method.Code.MaxStack, method.Code.MaxLocals, len(method.Code.Bytes)))

	code := method.Code.Bytes
	pc := 0
	for pc < len(code) {
		op := Opcode(code[pc])
		info := opTable[op]
		if info.width == 0 || pc+info.width > len(code) {
			sb.WriteString(fmt.Sprintf("%4d: .byte 0x%02X\n", pc, code[pc]))
			pc++
			continue
		}

		switch info.kind {
		case operandNone:
			sb.WriteString(fmt.Sprintf("%4d: %s\n", pc, info.name))

		case operandI8:
			sb.WriteString(fmt.Sprintf("%4d: %-13s %d\n", pc, info.name, int8(code[pc+1])))

		case operandI16:
			v := int16(binary.BigEndian.Uint16(code[pc+1:]))
			sb.WriteString(fmt.Sprintf("%4d: %-13s %d\n", pc, info.name, v))

		case operandU8Slot:
			sb.WriteString(fmt.Sprintf("%4d: %-13s %d\n", pc, info.name, code[pc+1]))

		case operandU8Pool:
			index := uint16(code[pc+1])
			sb.WriteString(fmt.Sprintf("%4d: %-13s #%d%s\n", pc, info.name, index, poolComment(class, index)))

		case operandU16Pool:
			index := binary.BigEndian.Uint16(code[pc+1:])
			sb.WriteString(fmt.Sprintf("%4d: %-13s #%d%s\n", pc, info.name, index, poolComment(class, index)))

		case operandBranch:
			offset := int16(binary.BigEndian.Uint16(code[pc+1:]))
			sb.WriteString(fmt.Sprintf("%4d: %-13s %d\n", pc, info.name, pc+int(offset)))

		case operandIinc:
			sb.WriteString(fmt.Sprintf("%4d: %-13s %d, %d\n", pc, info.name, code[pc+1], int8(code[pc+2])))

		case operandAType:
			sb.WriteString(fmt.Sprintf("%4d: %-13s %d\n", pc, info.name, code[pc+1]))
		}
		pc += info.width
	}
	return sb.String()
}

// poolComment resolves a pool index to a trailing comment, or returns
// an empty string if the entry can't be resolved.
func poolComment(class *classfile.Class, index uint16) string {
	ct, err := class.Constant(index)
	if err != nil {
		return ""
	}
	switch ct.Tag {
	case classfile.TagInteger:
		return fmt.Sprintf(" // %d", ct.Integer)
	case classfile.TagMethodref, classfile.TagFieldref:
		nat, err := class.Constant(ct.Index2)
		if err != nil || nat.Tag != classfile.TagNameAndType {
			return ""
		}
		name, err1 := class.Utf8At(nat.Index1)
		desc, err2 := class.Utf8At(nat.Index2)
		if err1 != nil || err2 != nil {
			return ""
		}
		if ct.Tag == classfile.TagFieldref {
			return fmt.Sprintf(" // %s:%s", name, desc)
		}
		return fmt.Sprintf(" // %s%s", name, desc)
	}
	return ""
}
