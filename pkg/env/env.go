package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// The logger picks its output format this way before the full config is
// loaded, so startup failures still log readably.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
