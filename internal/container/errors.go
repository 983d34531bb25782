package container

import "errors"

var (
	// ErrNotAContainer means the source file is not a readable archive.
	ErrNotAContainer = errors.New("container: not a deck container")

	// ErrMissingManifest means the archive has no manifest.json entry.
	ErrMissingManifest = errors.New("container: missing manifest.json")

	// ErrMalformedManifest means manifest.json exists but cannot be parsed.
	ErrMalformedManifest = errors.New("container: malformed manifest.json")

	// ErrMissingDatabase means the archive has no deck.sqlite entry.
	ErrMissingDatabase = errors.New("container: missing deck.sqlite")

	// ErrCorruptDatabase means deck.sqlite exists but is not readable as
	// the expected schema.
	ErrCorruptDatabase = errors.New("container: corrupt deck.sqlite")

	// ErrMediaFileMissing is surfaced lazily, only when a caller asks for
	// a media file the archive does not carry. The rest of the deck stays
	// usable.
	ErrMediaFileMissing = errors.New("container: media file missing")
)
