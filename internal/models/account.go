package models

// AccountRecord is the identity and metadata extracted from one statement.
// Every field except PDFFile may be nil when its label was not found.
type AccountRecord struct {
	PDFFile       string  `json:"pdfFile"`
	AccountNumber *string `json:"accountNumber"`
	HolderName    *string `json:"holderName"`
	CustomerID    *string `json:"customerId"`
	IFSCCode      *string `json:"ifscCode"`
	Branch        *string `json:"branch"`
	PeriodFrom    *string `json:"periodFrom"`
	PeriodTo      *string `json:"periodTo"`
}

// FailureEntry records a document whose processing was aborted.
type FailureEntry struct {
	PDFFile string `json:"pdfFile"`
	Error   string `json:"error"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
