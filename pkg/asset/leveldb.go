package asset

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const keyPrefix = "asset-"

// LevelStore keeps assets in a LevelDB database, one JSON record per asset.
type LevelStore struct {
	db *leveldb.DB
}

func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("asset: open %s: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Put(a Asset) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyPrefix+a.ID), data, nil)
}

// List returns every stored asset, most recent first.
func (s *LevelStore) List() ([]Asset, error) {
	var assets []Asset
	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	for iter.Next() {
		var a Asset
		if err := json.Unmarshal(iter.Value(), &a); err != nil {
			iter.Release()
			return nil, fmt.Errorf("asset: decode %s: %w", iter.Key(), err)
		}
		assets = append(assets, a)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, err
	}
	// v7 ids sort by creation time
	sort.SliceStable(assets, func(i, j int) bool {
		if !assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].CreatedAt.After(assets[j].CreatedAt)
		}
		return assets[i].ID > assets[j].ID
	})
	return assets, nil
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}
