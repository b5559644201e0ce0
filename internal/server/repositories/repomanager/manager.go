package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lingokeeper/internal/dbx"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/desktopcodes"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	DesktopCodes(db dbx.DBTX) desktopcodes.Repository
}
