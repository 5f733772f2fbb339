package types

// FileResult is the per-file outcome of an ingestion batch. Exactly one of
// the success fields (RowsImported, TableName) or Error is meaningful.
type FileResult struct {
	Filename     string   `json:"filename"`
	Success      bool     `json:"success"`
	RowsImported int      `json:"rows_imported,omitempty"`
	TableName    string   `json:"table_name,omitempty"`
	Columns      []string `json:"columns,omitempty"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// BatchResult aggregates the outcomes of one upload batch. File-level
// failures are isolated: they appear in Errors and in the matching
// FileResult but do not abort the batch, so a batch is best-effort rather
// than transactional across files.
type BatchResult struct {
	BatchID        string       `json:"batch_id"`
	Success        bool         `json:"success"`
	FilesProcessed int          `json:"files_processed"`
	TablesCreated  int          `json:"tables_created"`
	Errors         []string     `json:"errors"`
	Message        string       `json:"message"`
	Files          []FileResult `json:"files"`
}
