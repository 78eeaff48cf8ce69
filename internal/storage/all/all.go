// Package all registers every storage backend with the factory. Import it
// for side effects from binaries that select the backend at runtime.
package all

import (
	_ "modstab/internal/storage/mssql"
	_ "modstab/internal/storage/postgres"
	_ "modstab/internal/storage/sqlite"
)
