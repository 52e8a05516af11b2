// Package repomanager vends repository implementations bound to a database
// handle and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dstepanov2008/shopauth/internal/dbx"
	"github.com/dstepanov2008/shopauth/internal/server/repositories/resettokens"
	"github.com/dstepanov2008/shopauth/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pooled
// connection or an open transaction, so services can run multi-statement
// flows atomically through dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}
