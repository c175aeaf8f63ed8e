package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddStoryTextStyle, downAddStoryTextStyle)
}

func upAddStoryTextStyle(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		ALTER TABLE stories ADD COLUMN text_color VARCHAR NOT NULL DEFAULT '';
		ALTER TABLE stories ADD COLUMN text_size VARCHAR NOT NULL DEFAULT '';
		ALTER TABLE stories ADD COLUMN text_align VARCHAR NOT NULL DEFAULT '';
	`)
	return err
}

func downAddStoryTextStyle(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		ALTER TABLE stories DROP COLUMN text_color;
		ALTER TABLE stories DROP COLUMN text_size;
		ALTER TABLE stories DROP COLUMN text_align;
	`)
	return err
}
