// SPDX-License-Identifier: MPL-2.0

// Package upstream talks to the two upstream data sources the automation
// tracks: the kernel.org release feed (JSON) and the GitHub API for flake
// input branches. It also provides version-sort comparison helpers shared
// by the checker.
package upstream
