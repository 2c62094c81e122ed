// Package export merges newly fetched items into the persisted collection
// and writes the output artifact.
//
// The JSON collection file is the canonical archive; merges preserve the
// relative order of prior entries, append new items oldest first, and
// deduplicate by fullname with the first-seen copy winning. All writes go
// through a temp-file-and-rename so a crash never leaves a truncated or
// mixed artifact.
package export
