// Package pipeline orchestrates one incremental build: discovery, the
// fingerprint filter, bounded parallel conversion, cache persistence and the
// summary report.
//
//	Discover -> Staleness filter -> batch.Run -> raster.Convert
//	         -> atomic write -> cache.Set (completion callback) -> cache.Save
//
// The fingerprint cache is passed explicitly from load to save; nothing in
// the package is global. Cache entries are recorded only in the batch
// completion callback and only after the output file has been written.
package pipeline
