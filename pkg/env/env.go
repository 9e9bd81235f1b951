package env

import "os"

// Get returns the env var value or fallback when unset.
func Get(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
