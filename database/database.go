package database

import (
	"fmt"

	"github.com/minor-industries/ermc/database/inmem"
	"github.com/minor-industries/ermc/database/leveldb"
	"github.com/minor-industries/ermc/database/sqlite"
	"github.com/minor-industries/ermc/storage"
	"github.com/pkg/errors"
)

const (
	BackendSqlite  = "sqlite"
	BackendLevelDB = "leveldb"
	BackendInmem   = "inmem"
)

var Backends = []string{BackendSqlite, BackendLevelDB, BackendInmem}

// Open returns the named key-value backend. path is ignored for inmem.
func Open(kind string, path string) (storage.KV, error) {
	switch kind {
	case BackendSqlite:
		db, err := sqlite.Get(path)
		if err != nil {
			return nil, errors.Wrap(err, "get sqlite")
		}
		return db, nil
	case BackendLevelDB:
		db, err := leveldb.Get(path)
		if err != nil {
			return nil, errors.Wrap(err, "get leveldb")
		}
		return db, nil
	case BackendInmem:
		return inmem.NewBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", kind)
	}
}
