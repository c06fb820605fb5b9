// Package file stores settings on disk as TOML or YAML, written with
// owner-only permissions. Keys are flat ("chunking.size") in memory and
// nested tables in the file.
package file
