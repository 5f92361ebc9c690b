// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for t2kernel.
//
// This package implements the Cobra command hierarchy for the t2kernel CLI:
// checking upstream kernel releases and flake inputs, patching version pins,
// building the kernel variants, pushing artifacts to the binary cache, and
// managing configuration.
package cmd
