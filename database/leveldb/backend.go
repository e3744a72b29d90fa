package leveldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

type Backend struct {
	db *leveldb.DB
}

func Get(path string) (*Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb")
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Set(key string, value []byte) error {
	if err := b.db.Put([]byte(key), value, nil); err != nil {
		return errors.Wrap(err, "put")
	}
	return nil
}

func (b *Backend) Get(key string) ([]byte, bool, error) {
	value, err := b.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get")
	}
	return value, true, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}
