package models

// Table is a grid of cell text as laid out on a page. Rows may be ragged.
type Table [][]string

// Page holds the text layer and detected tables of one PDF page.
type Page struct {
	Number int
	Text   string
	Tables []Table
}

// Document is a fully read statement. It holds no open file handles.
type Document struct {
	Name  string
	Pages []Page
}

// DocState is the processing state of one document within a batch.
type DocState string

const (
	DocPending    DocState = "PENDING"
	DocExtracting DocState = "EXTRACTING"
	DocSucceeded  DocState = "SUCCEEDED"
	DocFailed     DocState = "FAILED"
)
