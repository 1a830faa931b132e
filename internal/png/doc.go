// Package png reads and writes the chunk layer of PNG files.
//
// Chunks are treated as opaque records: only the signature, the chunk type
// tag and the CRC are checked. Image semantics (IHDR, IDAT, ...) are left to
// image decoders.
//
// Ownership boundary:
// - chunk type tag validation
// - chunk record encode/decode and CRC integrity
// - container signature and ordered chunk list
//
// The package does no I/O beyond io.Reader/io.Writer adapters and never logs.
package png
