// Package entry defines the vault entry model and its canonical binary encoding.
//
// Payload layout (big endian):
//   - schema version (u16), entry count (u32)
//   - schema 1: positional fields, each text field as u32 length + bytes,
//     timestamps as i64 unix nanoseconds
//   - schema 2: per entry a field count (u16) followed by tagged fields
//     (tag u16, length u32, value) in ascending tag order
//
// Tags with the 0x8000 bit set are optional and skipped by readers that do
// not know them. Decode never guesses: anything it cannot parse exactly is
// reported as a *FormatError.
package entry
