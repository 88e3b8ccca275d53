// Package roll sequences a Skia dependency roll against a Chromium checkout.
//
// The Service uploads two reviews through scoped branch transactions: a
// whitespace-only control change, then the DEPS manifest change whose commit
// message cross-links the control review. The roll command wires the service
// into the CLI.
package roll
