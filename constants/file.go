package constants

import "strings"

const (
	// MimePDF is the only payload type accepted for extraction.
	MimePDF = "application/pdf"
	// MimeCSV is the provider e-mail import format.
	MimeCSV = "text/csv"

	// PreviewID marks a record that was shown to the user but never stored.
	PreviewID = "temp-preview"

	// ProviderEmailsKey is the single key the provider directory lives under.
	ProviderEmailsKey = "provider-emails"

	// MaxPDFSizeMB caps uploads accepted by the HTTP and inbox surfaces.
	MaxPDFSizeMB = 20
)

// AllowedExtensions holds the file extensions picked up by the inbox watcher.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
