// Package wire owns the D2D wire contract primitives.
//
// Ownership boundary:
// - fixed frame header and envelope framing
// - discriminator block encoding
// - read/write limits
package wire
