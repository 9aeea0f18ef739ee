// Package core provides the business logic for workbook import, filtering
// and export.
//
// This package holds the domain workflow independent of any transport. It
// can be used by web handlers, the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Catalog: a [schema.Catalog] describing every table a workbook may
//     hold. It is passed to [NewService] explicitly; there is no global
//     registry.
//   - Service: the entry point for all operations (import, filter, export,
//     dataset management, column conversion).
//   - DatasetStore: where imported datasets live. The server uses
//     PostgreSQL; tests and the CLI use the in-memory store.
//   - ExportLimiter: bounds how many workbooks are built at once.
//
// # Import
//
//  1. The caller passes an io.Reader holding an .xlsx document
//  2. The xlsx package reads every sheet into raw cells
//  3. The tabular importer coerces cells per the catalog's field types
//  4. The resulting dataset is saved and its ID returned
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB004: Dataset storage errors
//   - FILE001-FILE004: Upload errors (size, format, missing file)
//   - SHEET001-SHEET003: Column references, tables and table data
//   - FLT001: Filter requests
//   - EXP001-EXP003: Export errors (busy, write failure, timeout)
//   - CAT001-CAT002: Catalog errors
package core
