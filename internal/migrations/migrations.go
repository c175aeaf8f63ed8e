// Package migrations holds the goose migrations for the story store. Importing
// it registers them; Up applies them to db.
package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func Up(ctx context.Context, db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
