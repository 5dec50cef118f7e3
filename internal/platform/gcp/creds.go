package gcp

import (
	"os"

	"google.golang.org/api/option"
)

// clientOptionsFromEnv prefers inline JSON credentials and falls back to a
// credentials file path. With neither set, ADC applies.
func clientOptionsFromEnv() []option.ClientOption {
	if credsJSON := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); credsJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credsJSON))}
	}
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credsFile)}
	}
	return nil
}
