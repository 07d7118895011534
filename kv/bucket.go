// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket provides logical bucket for kv store.
type Bucket string

func (b Bucket) key(k []byte) []byte {
	return append([]byte(b), k...)
}

// NewStore creates a bucket store from the source store. Every key is transparently prefixed with
// the bucket name, and iteration is confined to the bucket.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{b, src}
}

type bucketStore struct {
	b   Bucket
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error)  { return s.src.Get(s.b.key(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)    { return s.src.Has(s.b.key(key)) }
func (s *bucketStore) IsNotFound(err error) bool       { return s.src.IsNotFound(err) }
func (s *bucketStore) Put(key, val []byte) error       { return s.src.Put(s.b.key(key), val) }
func (s *bucketStore) Delete(key []byte) error         { return s.src.Delete(s.b.key(key)) }
func (s *bucketStore) NewBatch() Batch                 { return &bucketBatch{s.b, s.src.NewBatch()} }
func (s *bucketStore) Iterate(r Range) Iterator        { return s.iterate(r) }

func (s *bucketStore) iterate(r Range) Iterator {
	start := s.b.key(r.Start)
	var limit []byte
	if len(r.Limit) == 0 {
		limit = prefixLimit([]byte(s.b))
	} else {
		limit = s.b.key(r.Limit)
	}
	return &bucketIter{s.src.Iterate(Range{Start: start, Limit: limit}), len(s.b)}
}

type bucketBatch struct {
	b     Bucket
	batch Batch
}

func (bb *bucketBatch) Put(key, val []byte) error { return bb.batch.Put(bb.b.key(key), val) }
func (bb *bucketBatch) Delete(key []byte) error   { return bb.batch.Delete(bb.b.key(key)) }
func (bb *bucketBatch) Len() int                  { return bb.batch.Len() }
func (bb *bucketBatch) Write() error              { return bb.batch.Write() }

type bucketIter struct {
	Iterator
	prefixLen int
}

func (i *bucketIter) Key() []byte {
	return i.Iterator.Key()[i.prefixLen:]
}

// prefixLimit returns the smallest key greater than every key starting with prefix, or nil when
// there is none.
func prefixLimit(prefix []byte) []byte {
	limit := append([]byte(nil), prefix...)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}
