package migrations

import "database/sql"

// Tag values duplicated from internal/types (MetaTag/ParamTag) rather
// than imported, so this package stays free of a dependency on the
// codec; the assignment is part of the on-disk contract and does not
// change.
const (
	metaTagMaxBootLevel  = 6 // internal/types.TagMaxBootLevel
	paramTagMaxBootLevel = 7 // reserved key-parameter tag gating boot-level-bound keys
)

// MigrateBootLevelUnreferenced is the v0->v1 step:
// any KeyEntry carrying a max-boot-level KeyParameter but no blob
// carrying the max-boot-level BlobMetaData tag predates boot-level
// enforcement and is demoted to Unreferenced.
func MigrateBootLevelUnreferenced(tx *sql.Tx) error {
	_, err := tx.Exec(`
		UPDATE keyentry
		SET state = 2
		WHERE state != 2
		  AND id IN (
		      SELECT DISTINCT key_id FROM keyparameter WHERE tag = ?
		  )
		  AND id NOT IN (
		      SELECT DISTINCT be.key_id
		      FROM blobentry be
		      JOIN blobmetadata bm ON bm.blob_id = be.id
		      WHERE bm.tag = ?
		  )
	`, paramTagMaxBootLevel, metaTagMaxBootLevel)
	return err
}
