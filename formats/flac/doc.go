// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC streams through github.com/tphakala/flac.
package flac
