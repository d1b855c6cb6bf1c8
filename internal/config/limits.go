package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to match common filesystem limits.
	MaxFolderNameLength = 255

	// MaxFileNameLength is the maximum length for file display names.
	// Same as folder names for consistency.
	MaxFileNameLength = 255

	// DefaultMaxUploadBytes caps a single upload at 25 MiB
	DefaultMaxUploadBytes = 25 * 1024 * 1024

	// DefaultSniffBytes is how much of an upload is inspected for its real content type
	DefaultSniffBytes = 3072

	// MultipartMemoryBytes is the in-memory budget for multipart parsing;
	// larger parts spill to temp files.
	MultipartMemoryBytes = 1 << 20

	// MultipartOverheadBytes is allowed on top of the upload limit for
	// multipart boundaries and the small form fields
	MultipartOverheadBytes = 64 * 1024
)
