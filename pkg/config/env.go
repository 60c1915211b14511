package config

import "strings"

// envKeyReplacer maps nested config keys like "metadata.postgres.host"
// to the environment variable form DEUCE_METADATA_POSTGRES_HOST.
func envKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
