// Package wiki indexes pages from a Confluence-compatible wiki. One
// source covers one space. Pages are listed through the REST content
// API and filtered against the cursor by their last modification time,
// so only pages changed since the previous sync are fetched again.
package wiki
