// Package archive unpacks gzip-compressed tar payloads into a package directory.
//
// Entries may not escape the destination directory, and each regular file
// is bounded in size so a malformed or hostile archive fails instead of
// filling the disk.
package archive
