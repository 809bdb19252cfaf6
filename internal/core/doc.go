// Package core holds the glossary ("dictionary") domain: entries scoped to
// a project and a language, the import pass that folds uploaded files into
// them, and the audited single-entry operations.
//
// It knows nothing about HTTP, SQL or the command line. Transports call
// [Service]; persistence sits behind [Store], with implementations under
// internal/store.
//
// # Import
//
// [Service.Upload] parses a file with the format registry and hands the
// records to [Importer.Import]. Per record:
//
//  1. untranslated records are skipped and counted
//  2. records whose source or target exceed [MaxTermLength] are discarded
//  3. the first entry with the same source is looked up, or created
//  4. the [Policy] decides between keeping, duplicating or overwriting it
//
// A CSV upload that applied nothing but skipped records is parsed a second
// time as plain source,target columns. This catches headerless two-column
// files, which the default column layout reads as location,source.
//
// # Audit
//
// Creations, edits and upload-created entries append a [Change]. Overwrites
// made by an upload are not recorded.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - DICT001-DICT005: glossary errors (missing entry, term length, scope)
//   - DB001-DB004: database errors
//   - FILE001-FILE004: file errors (size, format, content)
//   - UPL001-UPL003: upload errors (busy, cancelled, timeout)
package core
