// Package drive indexes files from Google Drive. Google Workspace
// documents are exported to text, regular text files are downloaded
// as-is, and binary files are skipped.
//
// Incremental sync rides the Changes API: the cursor stores a start
// page token, and each sync replays the change feed from there, which
// also reports removals. An expired token falls back to a full listing.
package drive
