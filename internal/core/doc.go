// Package core normalizes race-timing CSV exports into one canonical table.
//
// Timing systems export the same information under different headers,
// delimiters, encodings and layouts. This package turns any such file into a
// [Table] whose columns follow a fixed vocabulary, with time values also
// available as seconds. It has no transport or storage dependencies and can
// be used by the web server, CLI tools or tests without modification.
//
// # Pipeline
//
// [Normalize] runs these stages on one file:
//
//  1. [BOMReader] strips a byte order mark and reports it
//  2. the text is decoded with the first encoding that fits ([DefaultEncodings])
//  3. [DetectDelimiter] picks the delimiter from a sample of lines
//  4. the header row is located, skipping title lines above it
//  5. [MapColumns] resolves headers through an [AliasTable]
//  6. lap-by-lap files are pivoted to one row per entity ([NeedsReshape])
//  7. time columns gain a <NAME>_SEC sibling and numeric cells are coerced
//
// Row-level problems are never fatal. They are counted in [Diagnostics],
// which is returned with every table. File-level problems return an error
// that wraps [ErrUnparseableFile].
//
// # Aliases
//
// Header spellings are folded with [FoldHeader] and looked up in an
// [AliasTable]. The default table covers common exports; vendor profiles
// extend it with [AliasTable.Extend]:
//
//	aliases, err := core.DefaultAliasTable().Extend([]core.Alias{
//	    {Name: "Best Tm", Field: core.FieldFLTime},
//	})
//
// # Missing Values
//
// A missing numeric value is an invalid pgtype.Float8. Parse failures never
// raise errors; they produce the missing value and are counted per column in
// [Diagnostics.CoercionFailures].
//
// # Noise Files
//
// [Classify] separates OS metadata and binary files from candidate exports
// before parsing, so batch callers can skip them without reporting a
// failure.
//
// # Concurrency
//
// Normalization shares no state between calls. [Limiter] bounds how many
// run at once in a server.
package core
