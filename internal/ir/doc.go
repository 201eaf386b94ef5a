// Package ir provides the value and descriptor types shared by every weft
// package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Records are IRObject values; NO float types anywhere, numbers are int64
//   - Object keys iterate in RFC 8785 order (UTF-16 code units)
//   - Identity keys compare by canonical JSON, so IRInt(1) and IRString("1")
//     are distinct keys
//   - Operation tags are single bytes: ']' insert, '-' delete, '~' update,
//     anything else renders
package ir
