package repomanager

import (
	"context"
	"database/sql"

	"github.com/mvasilyev/mediavault/internal/dbx"
	"github.com/mvasilyev/mediavault/internal/server/repositories/accounts"
	"github.com/mvasilyev/mediavault/internal/server/repositories/assets"
)

// RepositoryManager vends repository implementations bound to a DBTX and
// exposes a schema migration hook. Services request repositories through the
// manager so the same code path works on *sql.DB and inside transactions.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Assets(db dbx.DBTX) assets.Repository
}
