package common

// Classification labels
const (
	LabelPlanet        = "PLANET"
	LabelCandidate     = "CANDIDATE"
	LabelFalsePositive = "FALSE POSITIVE"
)

// Service identity
const (
	ServiceName    = "Exoplanet AI Service"
	ServiceVersion = "1.0.0"
)

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvPort             = "PORT"
	EnvModelPath        = "MODEL_PATH"
	EnvDataPath         = "DATA_PATH"
	EnvArchiveURL       = "ARCHIVE_URL"
	EnvArchiveTimeout   = "ARCHIVE_TIMEOUT"
	EnvArchiveCacheTTL  = "ARCHIVE_CACHE_TTL"
	EnvArchiveCacheSize = "ARCHIVE_CACHE_SIZE"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFile          = "LOG_FILE"
	EnvLogPretty        = "LOG_PRETTY"
	EnvMaxUploadBytes   = "MAX_UPLOAD_BYTES"
	EnvPreviewPoints    = "PREVIEW_POINTS"
	EnvRequestTimeout   = "REQUEST_TIMEOUT"
)

// Configuration defaults
const (
	DefaultPort             = 5000
	DefaultModelPath        = "model.json"
	DefaultArchiveURL       = "https://exoplanetarchive.ipac.caltech.edu/TAP/sync"
	DefaultLogLevel         = "info"
	DefaultArchiveCacheSize = 256
	DefaultMaxUploadBytes   = 10 << 20 // 10 MiB
	DefaultPreviewPoints    = 100
)

// Light curve limits
const (
	// MinFilePoints is the minimum number of (time, flux) pairs an uploaded file must carry.
	MinFilePoints = 10
)

// Data source labels reported alongside analysis results
const (
	SourceArchive  = "NASA Exoplanet Archive"
	SourceMock     = "Generated Mock Data"
	SourceUpload   = "Uploaded File"
	SourceMockStar = "Mock Data"
)

// Common error messages
const (
	ErrMsgNoJSON           = "No JSON data provided"
	ErrMsgFluxRequired     = "flux_data is required"
	ErrMsgFluxEmpty        = "flux_data must be a non-empty list"
	ErrMsgLengthMismatch   = "time_data and flux_data must have the same length"
	ErrMsgNonNumeric       = "All data points must be numeric"
	ErrMsgStarIDRequired   = "star_id is required"
	ErrMsgStarIDEmpty      = "star_id cannot be empty"
	ErrMsgNoFile           = "No file uploaded"
	ErrMsgNoFileSelected   = "No file selected"
	ErrMsgEndpointNotFound = "Endpoint not found"
	ErrMsgMethodNotAllowed = "Method not allowed"
	ErrMsgTooFewPoints     = "File must contain at least 10 data points"
	ErrMsgFileTooLarge     = "File too large"
	ErrMsgNoStarData       = "No data available for the specified star ID"
	ErrMsgInternal         = "Internal server error"
)
