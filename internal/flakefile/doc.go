// SPDX-License-Identifier: MPL-2.0

// Package flakefile edits the kernel version pins inside a Nix flake file.
//
// The shell automation this replaces patched the flake with line-adjacent
// text substitution, which silently did nothing when a marker moved. Here
// the file is parsed into variant blocks located by attribute name, fields
// are edited in place, and every untouched byte round-trips unchanged. A
// missing variant or field is a typed error, never a silent no-op.
package flakefile
