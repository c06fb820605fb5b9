// Package normalisers turns raw file content into plain text before it is
// chunked. Each subpackage handles one family of formats; Registry picks
// the highest-priority normaliser for a MIME type.
package normalisers
