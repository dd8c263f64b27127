package entity

import "time"

// QuoteFile is one uploaded document. QuoteID never changes after creation.
type QuoteFile struct {
	ID                 string    `json:"id"`
	QuoteID            string    `json:"quote_id"`
	OriginalFilename   string    `json:"original_filename"`
	StoragePath        string    `json:"storage_path"`
	MimeType           string    `json:"mime_type"`
	FileSize           int64     `json:"file_size"`
	AIProcessingStatus string    `json:"ai_processing_status"`
	NeedsReplacement   bool      `json:"needs_replacement"`
	ProcessingError    string    `json:"processing_error,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsPDF returns true if the file must be rasterized before vision analysis
func (f *QuoteFile) IsPDF() bool {
	return f.MimeType == MimeTypePDF
}

// NeedsAnalysis returns true if the file has not been analysed successfully yet
func (f *QuoteFile) NeedsAnalysis() bool {
	return f.AIProcessingStatus == FileStatusPending || f.AIProcessingStatus == FileStatusFailed
}
