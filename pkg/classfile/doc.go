// Package classfile decodes Java class files into the immutable image
// the interpreter consumes.
//
// The decoder recognizes the slice of the format a TeenyJVM program can
// reach: the constant pool tags for UTF-8 strings, integers, class
// references, field/method references and name-and-type pairs, plus each
// method's Code attribute. Everything else in the stream (other constant
// tags, interfaces, fields, nested attributes) is consumed by its
// declared width and discarded so the cursor stays aligned.
//
// Three decisions shape the API:
//
//   - The constant pool is kept 1-indexed exactly as in the format, so
//     pool indices read out of bytecode resolve without adjustment.
//
//   - A parsed Class owns all of its data. UTF-8 strings and code bytes
//     are copied out of the input buffer, so the caller may discard the
//     stream immediately after Parse.
//
//   - Builder is the encoder mirror of Parse. Tests and tooling assemble
//     synthetic classes with it instead of carrying .class fixtures in
//     the tree.
//
// Marshal and Unmarshal give a canonical CBOR wire form of a parsed
// class for inspection tooling and caching.
package classfile
