package httpapi

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
// Default is 1 MiB; a full server config is a few KiB.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// defaultLogLines is used by the logs endpoint when ?n= is absent.
var defaultLogLines = 200

// SetDefaultLogLines sets the number of lines returned when ?n= is absent.
func SetDefaultLogLines(n int) {
	if n <= 0 {
		n = 200
	}
	defaultLogLines = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
