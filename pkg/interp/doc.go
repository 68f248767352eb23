// Package interp executes the integer subset of JVM bytecode against a
// parsed class image.
//
// The interpreter is a recursive tree of frames: each method invocation
// owns a freshly allocated operand stack of capacity max_stack and a
// locals array of length max_locals, and invokestatic recurses into
// Execute for the callee. The fetch-decode-execute loop is a single
// switch over the opcode byte, reading inline operands big-endian and
// advancing pc by each instruction's width.
//
// Supported instruction families:
//
//   - Constants: iconst_*, bipush, sipush, ldc (integer pool entries)
//   - Locals: iload/aload/istore/astore and their _0.._3 forms, iinc
//   - Arithmetic and bitwise: iadd isub imul idiv irem ineg, shifts
//     (low 5 bits of the count, iushr logical), iand ior ixor
//   - Stack: nop, dup
//   - Control flow: if<cond>, if_icmp<cond>, goto, all pc-relative
//     signed 16-bit offsets
//   - Calls and returns: invokestatic, ireturn/areturn/return
//   - Integer arrays: newarray (T_INT), arraylength, iaload, iastore,
//     backed by the monotonic Heap in this package
//
// Two deliberate simplifications stand in for real JVM linkage:
// getstatic consumes its operand and pushes nothing, and invokevirtual
// pops one integer and prints it as a decimal line. Together they make
// the System.out.println(int) sequence javac emits behave as a print
// intrinsic without a method-ref table of natives.
//
// All faults (division by zero, bad references or indices, operand
// stack bounds, unknown opcodes) surface as wrapped sentinel errors;
// nothing is caught or retried. Arithmetic wraps modulo 2^32 in two's
// complement, including MinInt32 / -1.
package interp
