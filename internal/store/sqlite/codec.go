package sqlite

// Entity codec: the bidirectional mapping between storage cells and
// the in-memory values in internal/types. KeyType, KeyLifeCycle,
// BlobState and SubComponentType already carry their stable integer
// assignment as their underlying representation (internal/types/enums.go)
// so the codec's job here is narrower: reject out-of-range integers on
// read, and serialize/deserialize the per-row metadata and parameter
// sets.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/veilkey/veilkeydb/internal/types"
)

func decodeKeyType(v int64) (types.KeyType, error) {
	kt := types.KeyType(v)
	if !kt.Valid() {
		return 0, fmt.Errorf("key_type %d: %w", v, types.ErrOutOfRange)
	}
	return kt, nil
}

func decodeLifeCycle(v int64) (types.KeyLifeCycle, error) {
	lc := types.KeyLifeCycle(v)
	if !lc.Valid() {
		return 0, fmt.Errorf("lifecycle %d: %w", v, types.ErrOutOfRange)
	}
	return lc, nil
}

func decodeBlobState(v int64) (types.BlobState, error) {
	bs := types.BlobState(v)
	if !bs.Valid() {
		return 0, fmt.Errorf("blob state %d: %w", v, types.ErrOutOfRange)
	}
	return bs, nil
}

func decodeSubComponent(v int64) (types.SubComponentType, error) {
	sc := types.SubComponentType(v)
	if !sc.Valid() {
		return 0, fmt.Errorf("subcomponent %d: %w", v, types.ErrOutOfRange)
	}
	return sc, nil
}

func decodeScopeKind(v int64) (types.ScopeKind, error) {
	sk := types.ScopeKind(v)
	if !sk.Valid() {
		return 0, fmt.Errorf("scope kind %d: %w", v, types.ErrOutOfRange)
	}
	return sk, nil
}

// --- BlobMetaData -----------------------------------------------------

func insertBlobMetaData(ctx context.Context, tx *Tx, blobID int64, m types.BlobMetaData) error {
	insert := func(tag types.MetaTag, intVal *int64, blobVal []byte) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO blobmetadata (blob_id, tag, int_value, blob_value) VALUES (?, ?, ?, ?)`,
			blobID, int32(tag), intVal, blobVal)
		return err
	}
	if m.EncryptedBy != nil {
		if m.EncryptedBy.IsPassword() {
			if err := insert(types.TagEncryptedBy, nil, nil); err != nil {
				return err
			}
		} else {
			id, _ := m.EncryptedBy.KeyID()
			if err := insert(types.TagEncryptedBy, &id, nil); err != nil {
				return err
			}
		}
	}
	if m.Salt != nil {
		if err := insert(types.TagSalt, nil, m.Salt); err != nil {
			return err
		}
	}
	if m.IV != nil {
		if err := insert(types.TagIV, nil, m.IV); err != nil {
			return err
		}
	}
	if m.AEADTag != nil {
		if err := insert(types.TagAEADTag, nil, m.AEADTag); err != nil {
			return err
		}
	}
	if m.KmUUID != nil {
		if err := insert(types.TagKmUUID, nil, m.KmUUID.Bytes()); err != nil {
			return err
		}
	}
	if m.PublicKey != nil {
		if err := insert(types.TagPublicKey, nil, m.PublicKey); err != nil {
			return err
		}
	}
	if m.MaxBootLevel != nil {
		v := *m.MaxBootLevel
		if err := insert(types.TagMaxBootLevel, &v, nil); err != nil {
			return err
		}
	}
	return nil
}

func loadBlobMetaData(ctx context.Context, tx *Tx, blobID int64) (types.BlobMetaData, error) {
	var m types.BlobMetaData
	rows, err := tx.QueryContext(ctx, `SELECT tag, int_value, blob_value FROM blobmetadata WHERE blob_id = ?`, blobID)
	if err != nil {
		return m, err
	}
	defer rows.Close()
	for rows.Next() {
		var tag int64
		var intVal sql.NullInt64
		var blobVal []byte
		if err := rows.Scan(&tag, &intVal, &blobVal); err != nil {
			return m, err
		}
		mt := types.MetaTag(tag)
		if !mt.Valid() {
			return m, fmt.Errorf("blob meta tag %d: %w", tag, types.ErrOutOfRange)
		}
		switch mt {
		case types.TagEncryptedBy:
			if intVal.Valid {
				eb := types.EncryptedByKeyID(intVal.Int64)
				m.EncryptedBy = &eb
			} else {
				eb := types.EncryptedByPassword()
				m.EncryptedBy = &eb
			}
		case types.TagSalt:
			m.Salt = blobVal
		case types.TagIV:
			m.IV = blobVal
		case types.TagAEADTag:
			m.AEADTag = blobVal
		case types.TagKmUUID:
			u, err := types.NewUUID(blobVal)
			if err != nil {
				return m, err
			}
			m.KmUUID = &u
		case types.TagPublicKey:
			m.PublicKey = blobVal
		case types.TagMaxBootLevel:
			if intVal.Valid {
				v := intVal.Int64
				m.MaxBootLevel = &v
			}
		}
	}
	return m, rows.Err()
}

// --- KeyMetaData -------------------------------------------------------

func insertKeyMetaData(ctx context.Context, tx *Tx, keyID int64, m types.KeyMetaData) error {
	insert := func(tag types.MetaTag, intVal *int64, blobVal []byte) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO keymetadata (key_id, tag, int_value, blob_value) VALUES (?, ?, ?, ?)`,
			keyID, int32(tag), intVal, blobVal)
		return err
	}
	if m.CreationDate != nil {
		v := m.CreationDate.MillisEpoch()
		if err := insert(types.TagCreationDate, &v, nil); err != nil {
			return err
		}
	}
	if m.AttestationChallenge != nil {
		if err := insert(types.TagAttestationChallenge, nil, m.AttestationChallenge); err != nil {
			return err
		}
	}
	if m.AttestationApplicationID != nil {
		if err := insert(types.TagAttestationApplicationID, nil, m.AttestationApplicationID); err != nil {
			return err
		}
	}
	if m.SidecarECDHPublicKey != nil {
		if err := insert(types.TagSidecarECDHPublicKey, nil, m.SidecarECDHPublicKey); err != nil {
			return err
		}
	}
	return nil
}

func loadKeyMetaData(ctx context.Context, tx *Tx, keyID int64) (types.KeyMetaData, error) {
	var m types.KeyMetaData
	rows, err := tx.QueryContext(ctx, `SELECT tag, int_value, blob_value FROM keymetadata WHERE key_id = ?`, keyID)
	if err != nil {
		return m, err
	}
	defer rows.Close()
	for rows.Next() {
		var tag int64
		var intVal sql.NullInt64
		var blobVal []byte
		if err := rows.Scan(&tag, &intVal, &blobVal); err != nil {
			return m, err
		}
		mt := types.MetaTag(tag)
		if !mt.Valid() {
			return m, fmt.Errorf("key meta tag %d: %w", tag, types.ErrOutOfRange)
		}
		switch mt {
		case types.TagCreationDate:
			if intVal.Valid {
				dt := types.DateTime(intVal.Int64)
				m.CreationDate = &dt
			}
		case types.TagAttestationChallenge:
			m.AttestationChallenge = blobVal
		case types.TagAttestationApplicationID:
			m.AttestationApplicationID = blobVal
		case types.TagSidecarECDHPublicKey:
			m.SidecarECDHPublicKey = blobVal
		}
	}
	return m, rows.Err()
}

// --- KeyParameter -------------------------------------------------------

func insertKeyParameters(ctx context.Context, tx *Tx, keyID int64, params []types.KeyParameter) error {
	for _, p := range params {
		if !p.Tag.Valid() {
			return fmt.Errorf("key parameter tag %d: %w", p.Tag, types.ErrOutOfRange)
		}
		var blobVal []byte
		if p.HasBytes {
			blobVal = p.BytesValue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO keyparameter (key_id, tag, int_value, blob_value, security_level) VALUES (?, ?, ?, ?, ?)`,
			keyID, int32(p.Tag), p.IntValue, blobVal, p.SecurityLevel)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadKeyParameters(ctx context.Context, tx *Tx, keyID int64) ([]types.KeyParameter, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT tag, int_value, blob_value, security_level FROM keyparameter WHERE key_id = ?`, keyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.KeyParameter
	for rows.Next() {
		var tag int64
		var intVal sql.NullInt64
		var blobVal []byte
		var secLevel int32
		if err := rows.Scan(&tag, &intVal, &blobVal, &secLevel); err != nil {
			return nil, err
		}
		pt := types.ParamTag(tag)
		if !pt.Valid() {
			return nil, fmt.Errorf("key parameter tag %d: %w", tag, types.ErrOutOfRange)
		}
		out = append(out, types.KeyParameter{
			KeyID:         keyID,
			Tag:           pt,
			IntValue:      intVal.Int64,
			BytesValue:    blobVal,
			HasBytes:      blobVal != nil,
			SecurityLevel: secLevel,
		})
	}
	return out, rows.Err()
}
