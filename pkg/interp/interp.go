package interp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/teenyjvm/pkg/classfile"
)

var log = commonlog.GetLogger("teeny.interp")

// MainMethod and MainDescriptor identify the entry point the driver
// invokes: main(String[]) returning void.
const (
	MainMethod     = "main"
	MainDescriptor = "([Ljava/lang/String;)V"
)

// DefaultMaxCallDepth bounds invokestatic recursion so a runaway program
// reports a fault instead of exhausting the host stack.
const DefaultMaxCallDepth = 10_000

var (
	ErrDivideByZero   = errors.New("division by zero")
	ErrStackOverflow  = errors.New("operand stack overflow")
	ErrStackUnderflow = errors.New("operand stack underflow")
	ErrBadLocal       = errors.New("local variable index out of range")
	ErrBadBranch      = errors.New("branch target outside code")
	ErrTruncatedCode  = errors.New("truncated instruction")
	ErrBadArrayType   = errors.New("unsupported newarray element type")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrMainNotVoid    = errors.New("main() must return void")
)

// Result is the outcome of executing one method: either void or a
// 32-bit word (integer or heap reference).
type Result struct {
	HasValue bool
	Value    int32
}

// Options configures an interpreter.
type Options struct {
	// Out receives println output. Defaults to os.Stdout.
	Out io.Writer
	// Profiler, when non-nil, counts opcodes and method invocations.
	Profiler *Profiler
	// Trace enables a per-instruction debug log line.
	Trace bool
	// MaxCallDepth overrides DefaultMaxCallDepth when positive.
	MaxCallDepth int
}

// Interp executes bytecode against one class image and one heap. The
// image is read-only and the heap grows monotonically, so a single
// Interp drives an entire program run.
type Interp struct {
	class *classfile.Class
	heap  *Heap
	out   io.Writer
	prof  *Profiler
	trace bool

	maxDepth int
	depth    int
}

// New creates an interpreter for the given class image and heap.
func New(class *classfile.Class, heap *Heap, opts Options) *Interp {
	in := &Interp{
		class:    class,
		heap:     heap,
		out:      opts.Out,
		prof:     opts.Profiler,
		trace:    opts.Trace,
		maxDepth: opts.MaxCallDepth,
	}
	if in.out == nil {
		in.out = os.Stdout
	}
	if in.maxDepth <= 0 {
		in.maxDepth = DefaultMaxCallDepth
	}
	return in
}

// Run locates the entry point, executes it with zeroed locals, and
// requires a void return. Slot 0, which would hold the argv reference,
// stays zero: supported programs never read it.
func (in *Interp) Run() error {
	main, err := in.class.FindMethod(MainMethod, MainDescriptor)
	if err != nil {
		return err
	}
	locals := make([]int32, main.Code.MaxLocals)
	result, err := in.Execute(main, locals)
	if err != nil {
		return err
	}
	if result.HasValue {
		return ErrMainNotVoid
	}
	return nil
}

// frame is the per-call execution state: a program counter and an
// operand stack of fixed capacity max_stack. Locals are owned by the
// caller and passed to Execute directly.
type frame struct {
	code  []byte
	pc    int
	stack []int32
	sp    int
}

func (f *frame) push(v int32) error {
	if f.sp >= len(f.stack) {
		return fmt.Errorf("pc %d: %w", f.pc, ErrStackOverflow)
	}
	f.stack[f.sp] = v
	f.sp++
	return nil
}

func (f *frame) pop() (int32, error) {
	if f.sp == 0 {
		return 0, fmt.Errorf("pc %d: %w", f.pc, ErrStackUnderflow)
	}
	f.sp--
	return f.stack[f.sp], nil
}

// pop2 pops b then a, where b was top of stack.
func (f *frame) pop2() (a, b int32, err error) {
	if b, err = f.pop(); err != nil {
		return
	}
	a, err = f.pop()
	return
}

// operand returns the n inline operand bytes of the instruction at pc.
func (f *frame) operand(n int) ([]byte, error) {
	if f.pc+1+n > len(f.code) {
		return nil, fmt.Errorf("pc %d: %w", f.pc, ErrTruncatedCode)
	}
	return f.code[f.pc+1 : f.pc+1+n], nil
}

// branch16 reads the two operand bytes unsigned, combines them
// big-endian, and sign-extends the 16-bit result.
func (f *frame) branch16() (int, error) {
	raw, err := f.operand(2)
	if err != nil {
		return 0, err
	}
	return int(int16(binary.BigEndian.Uint16(raw))), nil
}

// Execute runs one method to completion, recursing for invokestatic.
// locals must have length max_locals with parameters already stored in
// slots 0..n-1. It returns the method's optional word result.
func (in *Interp) Execute(method *classfile.Method, locals []int32) (Result, error) {
	if in.depth >= in.maxDepth {
		return Result{}, fmt.Errorf("call depth %d: %w", in.depth, ErrStackOverflow)
	}
	in.depth++
	defer func() { in.depth-- }()

	if in.prof != nil {
		in.prof.RecordCall(method.Name, method.Descriptor, in.depth)
	}
	if in.trace {
		log.Debugf("enter %s%s depth=%d", method.Name, method.Descriptor, in.depth)
	}

	f := &frame{
		code:  method.Code.Bytes,
		stack: make([]int32, method.Code.MaxStack),
	}

	for f.pc < len(f.code) {
		op := Opcode(f.code[f.pc])
		if in.prof != nil {
			in.prof.RecordOp(op)
		}
		if in.trace {
			log.Debugf("%4d: %-13s sp=%d", f.pc, op, f.sp)
		}

		switch op {
		case OpNop:
			f.pc++

		case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
			if err := f.push(int32(op) - int32(OpIconst0)); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpBipush:
			raw, err := f.operand(1)
			if err != nil {
				return Result{}, err
			}
			if err := f.push(int32(int8(raw[0]))); err != nil {
				return Result{}, err
			}
			f.pc += 2

		case OpSipush:
			raw, err := f.operand(2)
			if err != nil {
				return Result{}, err
			}
			if err := f.push(int32(int16(binary.BigEndian.Uint16(raw)))); err != nil {
				return Result{}, err
			}
			f.pc += 3

		case OpLdc:
			raw, err := f.operand(1)
			if err != nil {
				return Result{}, err
			}
			v, err := in.class.IntegerAt(uint16(raw[0]))
			if err != nil {
				return Result{}, fmt.Errorf("pc %d: ldc: %w", f.pc, err)
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc += 2

		case OpIload, OpAload:
			raw, err := f.operand(1)
			if err != nil {
				return Result{}, err
			}
			v, err := loadLocal(locals, int(raw[0]), f.pc)
			if err != nil {
				return Result{}, err
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc += 2

		case OpIload0, OpIload1, OpIload2, OpIload3:
			v, err := loadLocal(locals, int(op-OpIload0), f.pc)
			if err != nil {
				return Result{}, err
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpAload0, OpAload1, OpAload2, OpAload3:
			v, err := loadLocal(locals, int(op-OpAload0), f.pc)
			if err != nil {
				return Result{}, err
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIstore, OpAstore:
			raw, err := f.operand(1)
			if err != nil {
				return Result{}, err
			}
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if err := storeLocal(locals, int(raw[0]), v, f.pc); err != nil {
				return Result{}, err
			}
			f.pc += 2

		case OpIstore0, OpIstore1, OpIstore2, OpIstore3:
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if err := storeLocal(locals, int(op-OpIstore0), v, f.pc); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpAstore0, OpAstore1, OpAstore2, OpAstore3:
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if err := storeLocal(locals, int(op-OpAstore0), v, f.pc); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIinc:
			raw, err := f.operand(2)
			if err != nil {
				return Result{}, err
			}
			slot := int(raw[0])
			if slot >= len(locals) {
				return Result{}, fmt.Errorf("pc %d: slot %d of %d: %w", f.pc, slot, len(locals), ErrBadLocal)
			}
			locals[slot] += int32(int8(raw[1]))
			f.pc += 3

		case OpIadd:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a + b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIsub:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a - b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpImul:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a * b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIdiv:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if b == 0 {
				return Result{}, fmt.Errorf("pc %d: idiv: %w", f.pc, ErrDivideByZero)
			}
			// MinInt32 / -1 wraps to MinInt32, Go's defined int32
			// behavior and the two's-complement convention here.
			if err := f.push(a / b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIrem:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if b == 0 {
				return Result{}, fmt.Errorf("pc %d: irem: %w", f.pc, ErrDivideByZero)
			}
			if err := f.push(a % b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIneg:
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(-v); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIshl:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a << (uint32(b) & 0x1F)); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIshr:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a >> (uint32(b) & 0x1F)); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIushr:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(int32(uint32(a) >> (uint32(b) & 0x1F))); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIand:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a & b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIor:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a | b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIxor:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(a ^ b); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpDup:
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle:
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if err := in.branch(f, compare1(op, v)); err != nil {
				return Result{}, err
			}

		case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
			a, b, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			if err := in.branch(f, compare2(op, a, b)); err != nil {
				return Result{}, err
			}

		case OpGoto:
			if err := in.branch(f, true); err != nil {
				return Result{}, err
			}

		case OpIreturn, OpAreturn:
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			return Result{HasValue: true, Value: v}, nil

		case OpReturn:
			return Result{}, nil

		case OpGetstatic:
			// The System.out reference javac pushes before a println
			// never reaches the stack; the invokevirtual intrinsic
			// below doesn't need it.
			if _, err := f.operand(2); err != nil {
				return Result{}, err
			}
			f.pc += 3

		case OpInvokevirtual:
			if _, err := f.operand(2); err != nil {
				return Result{}, err
			}
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			fmt.Fprintf(in.out, "%d\n", v)
			f.pc += 3

		case OpInvokestatic:
			raw, err := f.operand(2)
			if err != nil {
				return Result{}, err
			}
			if err := in.invokeStatic(f, binary.BigEndian.Uint16(raw)); err != nil {
				return Result{}, err
			}
			f.pc += 3

		case OpNewarray:
			raw, err := f.operand(1)
			if err != nil {
				return Result{}, err
			}
			if raw[0] != ATypeInt {
				return Result{}, fmt.Errorf("pc %d: atype %d: %w", f.pc, raw[0], ErrBadArrayType)
			}
			length, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			if length < 0 {
				return Result{}, fmt.Errorf("pc %d: negative array length %d: %w", f.pc, length, ErrBadIndex)
			}
			if err := f.push(in.heap.Alloc(length)); err != nil {
				return Result{}, err
			}
			f.pc += 2

		case OpArraylength:
			ref, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			a, err := in.heap.Get(ref)
			if err != nil {
				return Result{}, fmt.Errorf("pc %d: arraylength: %w", f.pc, err)
			}
			if err := f.push(a.Len()); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIaload:
			ref, index, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			a, err := in.heap.Get(ref)
			if err != nil {
				return Result{}, fmt.Errorf("pc %d: iaload: %w", f.pc, err)
			}
			v, err := a.Load(index)
			if err != nil {
				return Result{}, fmt.Errorf("pc %d: iaload: %w", f.pc, err)
			}
			if err := f.push(v); err != nil {
				return Result{}, err
			}
			f.pc++

		case OpIastore:
			v, err := f.pop()
			if err != nil {
				return Result{}, err
			}
			ref, index, err := f.pop2()
			if err != nil {
				return Result{}, err
			}
			a, err := in.heap.Get(ref)
			if err != nil {
				return Result{}, fmt.Errorf("pc %d: iastore: %w", f.pc, err)
			}
			if err := a.Store(index, v); err != nil {
				return Result{}, fmt.Errorf("pc %d: iastore: %w", f.pc, err)
			}
			f.pc++

		default:
			return Result{}, fmt.Errorf("0x%02X at pc %d: %w", byte(op), f.pc, ErrUnknownOpcode)
		}
	}

	// Fell off the end of the code array: tolerated as a void return.
	return Result{}, nil
}

// branch advances pc by the instruction's signed 16-bit offset when
// taken, or past the instruction when not.
func (in *Interp) branch(f *frame, taken bool) error {
	if !taken {
		f.pc += 3
		return nil
	}
	offset, err := f.branch16()
	if err != nil {
		return err
	}
	target := f.pc + offset
	if target < 0 || target >= len(f.code) {
		return fmt.Errorf("pc %d: target %d of %d: %w", f.pc, target, len(f.code), ErrBadBranch)
	}
	f.pc = target
	return nil
}

// invokeStatic resolves the callee, moves its parameters from the
// caller's operand stack into fresh locals, recurses, and pushes a
// returned word back onto the caller's stack.
func (in *Interp) invokeStatic(f *frame, poolIndex uint16) error {
	callee, err := in.class.FindMethodFromIndex(poolIndex)
	if err != nil {
		return fmt.Errorf("pc %d: invokestatic: %w", f.pc, err)
	}
	numParams, err := callee.ParamCount()
	if err != nil {
		return fmt.Errorf("pc %d: invokestatic %s: %w", f.pc, callee.Name, err)
	}

	calleeLocals := make([]int32, callee.Code.MaxLocals)
	if numParams > len(calleeLocals) {
		return fmt.Errorf("pc %d: %s: %d params exceed %d locals: %w",
			f.pc, callee.Name, numParams, len(calleeLocals), ErrBadLocal)
	}
	for i := numParams - 1; i >= 0; i-- {
		v, err := f.pop()
		if err != nil {
			return err
		}
		calleeLocals[i] = v
	}

	ret, err := in.Execute(callee, calleeLocals)
	if err != nil {
		return err
	}
	if ret.HasValue {
		return f.push(ret.Value)
	}
	return nil
}

func loadLocal(locals []int32, slot, pc int) (int32, error) {
	if slot >= len(locals) {
		return 0, fmt.Errorf("pc %d: slot %d of %d: %w", pc, slot, len(locals), ErrBadLocal)
	}
	return locals[slot], nil
}

func storeLocal(locals []int32, slot int, v int32, pc int) error {
	if slot >= len(locals) {
		return fmt.Errorf("pc %d: slot %d of %d: %w", pc, slot, len(locals), ErrBadLocal)
	}
	locals[slot] = v
	return nil
}

func compare1(op Opcode, v int32) bool {
	switch op {
	case OpIfeq:
		return v == 0
	case OpIfne:
		return v != 0
	case OpIflt:
		return v < 0
	case OpIfge:
		return v >= 0
	case OpIfgt:
		return v > 0
	default:
		return v <= 0
	}
}

func compare2(op Opcode, a, b int32) bool {
	switch op {
	case OpIfIcmpeq:
		return a == b
	case OpIfIcmpne:
		return a != b
	case OpIfIcmplt:
		return a < b
	case OpIfIcmpge:
		return a >= b
	case OpIfIcmpgt:
		return a > b
	default:
		return a <= b
	}
}
