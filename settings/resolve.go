package settings

import "os"

// EnvAPIKey is the tool-wide API key variable.
const EnvAPIKey = "ZHDOC_API_KEY"

// EnvVarForProvider returns the conventional API key variable of a hosted
// provider, or "" for local ones.
func EnvVarForProvider(providerID string) string {
	switch providerID {
	case "openai":
		return "OPENAI_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	}
	return ""
}

// ResolveAPIKey returns the first non-empty key among the flag value,
// ZHDOC_API_KEY, the provider's own variable, the project file value and
// the credential store.
func ResolveAPIKey(providerID, flagValue, projectValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v
	}
	if env := EnvVarForProvider(providerID); env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if projectValue != "" {
		return projectValue
	}
	return GetAPIKey(providerID)
}

// First returns the first non-empty value.
func First(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
