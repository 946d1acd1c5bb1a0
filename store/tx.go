package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/andreyvit/bipf"
)

// Tx is a store transaction. It must not be used after the Read or Write
// callback that received it returns.
type Tx struct {
	store   *Store
	stx     storageTx
	written bool
}

func (tx *Tx) close() {
	err := tx.stx.Rollback()
	if err != nil {
		panic(fmt.Errorf("store: rollback: %w", err))
	}
}

func (tx *Tx) IsWritable() bool {
	return tx.stx.Writable()
}

// Size returns the size of the underlying database file, or 0 for memory
// stores.
func (tx *Tx) Size() int64 {
	return tx.stx.Size()
}

func (tx *Tx) docErr(coll, id string, err error) error {
	return &DocError{Collection: coll, ID: id, Err: err}
}

// Put encodes v and stores it under id, replacing any previous document.
func (tx *Tx) Put(coll, id string, v bipf.Value) error {
	if !tx.IsWritable() {
		return ErrReadOnly
	}
	raw, err := tx.store.codec.AllocAndEncode(v)
	if err != nil {
		return tx.docErr(coll, id, err)
	}
	return tx.put(coll, id, raw)
}

// PutNative converts x with bipf.FromNative and stores it.
func (tx *Tx) PutNative(coll, id string, x any) error {
	v, err := bipf.FromNative(x)
	if err != nil {
		return tx.docErr(coll, id, err)
	}
	return tx.Put(coll, id, v)
}

// PutRaw stores an already encoded document. raw must hold exactly one
// well-framed value.
func (tx *Tx) PutRaw(coll, id string, raw []byte) error {
	if !tx.IsWritable() {
		return ErrReadOnly
	}
	if err := validateDoc(raw); err != nil {
		return tx.docErr(coll, id, err)
	}
	return tx.put(coll, id, raw)
}

func validateDoc(raw []byte) error {
	end, err := bipf.Skip(raw, 0)
	if err != nil {
		return err
	}
	if end != len(raw) {
		return &bipf.DataError{Data: raw, Off: end, Err: bipf.ErrTrailingGarbage, Msg: "document has extra bytes"}
	}
	return nil
}

func (tx *Tx) put(coll, id string, raw []byte) error {
	b, err := tx.stx.CreateBucket(coll)
	if err != nil {
		return fmt.Errorf("store: creating %s: %w", coll, err)
	}
	err = b.Put([]byte(id), raw)
	if err != nil {
		return tx.docErr(coll, id, err)
	}
	tx.written = true
	return nil
}

// Raw returns the stored bytes of a document, or nil. The slice is only
// valid until the transaction ends and must not be modified.
func (tx *Tx) Raw(coll, id string) []byte {
	b := tx.stx.Bucket(coll)
	if b == nil {
		return nil
	}
	return b.Get(unsafeBytesFromString(id))
}

// Get decodes a whole document.
func (tx *Tx) Get(coll, id string) (bipf.Value, bool, error) {
	raw := tx.Raw(coll, id)
	if raw == nil {
		return bipf.Value{}, false, nil
	}
	v, _, err := tx.store.codec.Decode(raw, 0)
	if err != nil {
		return bipf.Value{}, false, tx.docErr(coll, id, err)
	}
	return v, true, nil
}

// Lookup decodes only the value at path inside a document. A missing
// document and a missing path both return false.
func (tx *Tx) Lookup(coll, id string, path ...any) (bipf.Value, bool, error) {
	raw := tx.Raw(coll, id)
	if raw == nil {
		return bipf.Value{}, false, nil
	}
	v, found, err := tx.store.codec.Lookup(raw, 0, path...)
	if err != nil {
		return bipf.Value{}, false, tx.docErr(coll, id, err)
	}
	return v, found, nil
}

// Delete removes a document and reports whether it existed.
func (tx *Tx) Delete(coll, id string) (bool, error) {
	if !tx.IsWritable() {
		return false, ErrReadOnly
	}
	b := tx.stx.Bucket(coll)
	if b == nil {
		return false, nil
	}
	key := []byte(id)
	if b.Get(key) == nil {
		return false, nil
	}
	err := b.Delete(key)
	if err != nil {
		return false, tx.docErr(coll, id, err)
	}
	tx.written = true
	return true, nil
}

// DropCollection deletes coll with all its documents.
func (tx *Tx) DropCollection(coll string) (bool, error) {
	if !tx.IsWritable() {
		return false, ErrReadOnly
	}
	err := tx.stx.DeleteBucket(coll)
	if errors.Is(err, errBucketNotFound) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("store: dropping %s: %w", coll, err)
	}
	tx.written = true
	return true, nil
}

// Collections lists collection names in sorted order.
func (tx *Tx) Collections() []string {
	return tx.stx.BucketNames()
}

// Scan calls fn with every document of coll in id order until fn returns
// false. Each document is checked to be a single well-framed value before
// fn sees it.
func (tx *Tx) Scan(coll string, fn func(id string, raw []byte) bool) error {
	return tx.ScanPrefix(coll, "", fn)
}

// ScanPrefix is Scan restricted to ids starting with prefix.
func (tx *Tx) ScanPrefix(coll, prefix string, fn func(id string, raw []byte) bool) error {
	b := tx.stx.Bucket(coll)
	if b == nil {
		return nil
	}
	p := unsafeBytesFromString(prefix)
	c := b.Cursor()
	var k, v []byte
	if prefix == "" {
		k, v = c.First()
	} else {
		k, v = c.Seek(p)
	}
	for ; k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		if err := validateDoc(v); err != nil {
			return tx.docErr(coll, string(k), err)
		}
		if !fn(string(k), v) {
			break
		}
	}
	return nil
}

// Find returns the ids of documents whose value at path equals want. Only
// the addressed value of each document is decoded; documents without the
// path are skipped.
func (tx *Tx) Find(coll string, path []any, want bipf.Value) ([]string, error) {
	var ids []string
	var ferr error
	err := tx.Scan(coll, func(id string, raw []byte) bool {
		off, err := bipf.FindPath(raw, 0, path...)
		if err != nil {
			ferr = tx.docErr(coll, id, err)
			return false
		}
		if off == bipf.NotFound {
			return true
		}
		v, _, err := tx.store.codec.Decode(raw, off)
		if err != nil {
			ferr = tx.docErr(coll, id, err)
			return false
		}
		if v.Equal(want) {
			ids = append(ids, id)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if ferr != nil {
		return nil, ferr
	}
	return ids, nil
}

// Count returns the number of documents in coll.
func (tx *Tx) Count(coll string) int {
	b := tx.stx.Bucket(coll)
	if b == nil {
		return 0
	}
	return b.Stats().KeyN
}

type CollectionStats struct {
	Docs      int
	DataSize  int64
	DataAlloc int64
}

// Stats reports the size of coll. Memory stores report allocation equal to
// the payload size.
func (tx *Tx) Stats(coll string) CollectionStats {
	b := tx.stx.Bucket(coll)
	if b == nil {
		return CollectionStats{}
	}
	bs := b.Stats()
	return CollectionStats{
		Docs:      bs.KeyN,
		DataSize:  bs.LeafInuse,
		DataAlloc: bs.TotalAlloc(),
	}
}
