// Package barcode resolves puck datamatrix codes to dewar positions.
//
// Resolutions are cached for a bounded time because pucks can be moved between
// scans. A miss reads the controller's datamatrix table with one "sampledata"
// query, and concurrent misses for the same code share that query.
package barcode
