// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/hoard/kv"
)

func TestLevelDB(t *testing.T) {
	disk, err := New(filepath.Join(t.TempDir(), "db"), Options{16, 16})
	require.NoError(t, err)
	defer disk.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	for _, db := range []*LevelDB{disk, mem} {
		key, value := []byte("123"), []byte("456")

		require.NoError(t, db.Put(key, value))
		got, err := db.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, got)

		has, err := db.Has(key)
		require.NoError(t, err)
		assert.True(t, has)

		_, err = db.Get([]byte("abc"))
		assert.True(t, db.IsNotFound(err))

		require.NoError(t, db.Delete(key))
		has, err = db.Has(key)
		require.NoError(t, err)
		assert.False(t, has)
	}
}

func TestBucketIsolation(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	a := kv.Bucket("a/").NewStore(db)
	b := kv.Bucket("b/").NewStore(db)

	batch := a.NewBatch()
	require.NoError(t, batch.Put([]byte("x"), []byte{1}))
	require.NoError(t, batch.Put([]byte("y"), []byte{2}))
	assert.Equal(t, 2, batch.Len())
	require.NoError(t, batch.Write())
	require.NoError(t, b.Put([]byte("x"), []byte{3}))

	val, err := kv.GetOrNil(b, []byte("y"))
	require.NoError(t, err)
	assert.Nil(t, val)

	it := a.Iterate(kv.Range{})
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"x", "y"}, keys)
}
