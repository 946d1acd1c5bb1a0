package store

import (
	jsonpatch "github.com/evanphx/json-patch"

	"github.com/andreyvit/bipf"
)

// Patch applies an RFC 6902 JSON Patch to a stored document and stores the
// result. The document travels through JSON, so buffers come back as base64
// strings and whole doubles stay doubles. A missing document is ErrNotFound.
func (tx *Tx) Patch(coll, id string, patch []byte) error {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return tx.docErr(coll, id, err)
	}
	return tx.rewriteJSON(coll, id, false, ops.Apply)
}

// MergePatch applies an RFC 7386 merge patch. A missing document is
// treated as an empty object, so MergePatch also creates documents.
func (tx *Tx) MergePatch(coll, id string, patch []byte) error {
	return tx.rewriteJSON(coll, id, true, func(doc []byte) ([]byte, error) {
		return jsonpatch.MergePatch(doc, patch)
	})
}

func (tx *Tx) rewriteJSON(coll, id string, upsert bool, fn func(doc []byte) ([]byte, error)) error {
	if !tx.IsWritable() {
		return ErrReadOnly
	}
	v, found, err := tx.Get(coll, id)
	if err != nil {
		return err
	}
	var doc []byte
	if found {
		doc, err = bipf.ToJSON(v)
		if err != nil {
			return tx.docErr(coll, id, err)
		}
	} else if upsert {
		doc = []byte("{}")
	} else {
		return tx.docErr(coll, id, ErrNotFound)
	}

	doc, err = fn(doc)
	if err != nil {
		return tx.docErr(coll, id, err)
	}
	v, err = bipf.FromJSON(doc)
	if err != nil {
		return tx.docErr(coll, id, err)
	}
	return tx.Put(coll, id, v)
}
