// Package all wires every built-in storage backend into the storage factory.
// Importing it for side effects makes the "postgres", "mssql" and "sqlite"
// kinds available to storage.New and storage.NewRowSink.
package all

import (
	_ "mortstat/internal/storage/mssql"
	_ "mortstat/internal/storage/postgres"
	_ "mortstat/internal/storage/sqlite"
)
