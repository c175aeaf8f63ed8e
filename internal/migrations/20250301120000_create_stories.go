package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateStories, downCreateStories)
}

func upCreateStories(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE stories (
			id          VARCHAR PRIMARY KEY,
			user_id     VARCHAR NOT NULL,
			user_name   VARCHAR NOT NULL DEFAULT '',
			user_avatar VARCHAR NOT NULL DEFAULT '',
			media_url   VARCHAR NOT NULL,
			media_type  VARCHAR NOT NULL DEFAULT 'image',
			title       VARCHAR NOT NULL DEFAULT '',
			content     TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			expires_at  TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX stories_expires_at_idx ON stories (expires_at);
		CREATE INDEX stories_user_created_idx ON stories (user_id, created_at);
	`)
	return err
}

func downCreateStories(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE stories;`)
	return err
}
