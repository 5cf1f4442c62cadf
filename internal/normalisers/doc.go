// Package normalisers converts raw connector payloads into canonical
// documents. Each subpackage handles one format; the registry picks
// the best match by MIME type, source type and priority, so adding a
// format never touches the dispatch logic.
package normalisers
