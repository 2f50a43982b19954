package logger

import "strings"

// RedactEmail masks an e-mail address for safe logging.
// "john.doe@example.com" → "jo***@example.com"; local parts of two
// characters or fewer are fully masked.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// RedactSecret keeps the first four characters of a token or key so log
// lines can be correlated without leaking the credential.
func RedactSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}
