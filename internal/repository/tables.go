package repository

import "fmt"

// TableNames holds the prefixed table names for the current environment
type TableNames struct {
	Folders string
	Files   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Folders: fmt.Sprintf("%sfolders", prefix),
		Files:   fmt.Sprintf("%sfiles", prefix),
	}
}

// Index returns a prefixed index name for table
func (t *TableNames) Index(table, suffix string) string {
	return fmt.Sprintf("idx_%s_%s", table, suffix)
}
