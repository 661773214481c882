package ledger

import "fmt"

func NewLedger(kind, sqlitePath string) (Ledger, error) {
	switch kind {
	case "", "memory":
		return NewMemoryLedger(), nil
	case "sqlite":
		return NewSQLiteLedger(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", kind)
	}
}
