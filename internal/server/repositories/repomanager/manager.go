package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/multichat/internal/dbx"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// choose between the pool and an open transaction per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Models(db dbx.DBTX) catalog.Repository
	Messages(db dbx.DBTX) messages.Repository
}
