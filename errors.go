package zipseek

import "errors"

var (
	// ErrCentralDirectoryNotFound is returned when no end of central directory
	// signature exists within the trailing search window of the stream.
	ErrCentralDirectoryNotFound = errors.New("zipseek: end of central directory not found")

	// ErrSplitArchive is returned when any disk-spanning indicator is detected.
	// Multi-volume archives are rejected, not supported.
	ErrSplitArchive = errors.New("zipseek: split archives are not supported")

	// ErrZip64Misplaced is returned when a Zip64 locator is present but its
	// target offset does not hold a valid Zip64 end of central directory record.
	ErrZip64Misplaced = errors.New("zipseek: zip64 end of central directory record not at locator offset")

	// ErrFieldOverflow is returned when a 64-bit field cannot be represented
	// as a signed offset, or the central directory start exceeds the stream length.
	ErrFieldOverflow = errors.New("zipseek: field value exceeds representable range")

	// ErrMalformedRecord is returned when a fixed-layout record is truncated
	// or corrupt mid-parse.
	ErrMalformedRecord = errors.New("zipseek: malformed record")

	// ErrEntryCountMismatch is returned when a full central directory scan
	// reads a different number of headers than the end record declared.
	ErrEntryCountMismatch = errors.New("zipseek: central directory entry count mismatch")

	// ErrUnsupportedMethod is returned when an entry's compression method is
	// not Stored, Deflated or Deflate64.
	ErrUnsupportedMethod = errors.New("zipseek: unsupported compression method")

	// ErrLocalHeaderCorrupt is returned when an entry's local header is missing,
	// malformed, or implies a data range outside the stream.
	ErrLocalHeaderCorrupt = errors.New("zipseek: local file header corrupt")

	// ErrUnsupportedOperation is returned when seeking or writing is attempted
	// on a read-only sequential stream.
	ErrUnsupportedOperation = errors.New("zipseek: operation not supported")

	// ErrArchiveClosed is returned when a stream derived from an Archive is
	// used after the Archive was closed.
	ErrArchiveClosed = errors.New("zipseek: archive is closed")

	// ErrChecksum is returned when a fully read entry's CRC-32 does not match
	// the central directory value.
	ErrChecksum = errors.New("zipseek: checksum error")

	// ErrSizeMismatch is returned when a decompressed stream does not produce
	// exactly the declared uncompressed size.
	ErrSizeMismatch = errors.New("zipseek: uncompressed size mismatch")
)
