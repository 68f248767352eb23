package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadDescriptor indicates a method descriptor that doesn't follow
// the (T1T2...Tn)R grammar of JVMS §4.3.3.
var ErrBadDescriptor = errors.New("malformed method descriptor")

// ParamCount counts the top-level parameter tokens of a method
// descriptor. A token is a primitive letter, L<classname>;, or [
// followed by another token.
func ParamCount(descriptor string) (int, error) {
	if len(descriptor) < 2 || descriptor[0] != '(' {
		return 0, fmt.Errorf("%q: %w", descriptor, ErrBadDescriptor)
	}
	count := 0
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		n, err := tokenLen(descriptor[i:])
		if err != nil {
			return 0, fmt.Errorf("%q at %d: %w", descriptor, i, err)
		}
		i += n
		count++
	}
	if i+1 >= len(descriptor) {
		return 0, fmt.Errorf("%q: missing return type: %w", descriptor, ErrBadDescriptor)
	}
	return count, nil
}

// tokenLen returns the byte length of the leading field-type token.
func tokenLen(s string) (int, error) {
	if s == "" {
		return 0, ErrBadDescriptor
	}
	switch s[0] {
	case 'B', 'C', 'S', 'I', 'Z', 'F', 'J', 'D':
		return 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated class name: %w", ErrBadDescriptor)
		}
		return end + 1, nil
	case '[':
		n, err := tokenLen(s[1:])
		if err != nil {
			return 0, err
		}
		return n + 1, nil
	default:
		return 0, fmt.Errorf("unknown type char %q: %w", s[0], ErrBadDescriptor)
	}
}

// ParamCount counts the method's declared parameters.
func (m *Method) ParamCount() (int, error) {
	return ParamCount(m.Descriptor)
}
