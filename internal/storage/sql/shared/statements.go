package shared

// SQLStatementsFactory hides the differences between the supported databases.
// Statements are written with ? placeholders and rebound by the factory.
type SQLStatementsFactory interface {
	GetTablesSchema() string
	Rebind(query string) string
}
