// Package d2d owns the device-to-device message catalogue.
//
// Ownership boundary:
// - typed request/reply model and correlation codes on the wire
// - discriminator registry (encode/decode between messages and envelopes)
// - permission envelopes and subject unions
// - per-message precondition validation
package d2d
