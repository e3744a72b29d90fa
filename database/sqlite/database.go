package sqlite

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	Name      string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"`
}

type Backend struct {
	db *gorm.DB
}

func Get(filename string) (*Backend, error) {
	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Wrap(err, "migrate entry")
	}

	return &Backend{db: db}, nil
}

func (b *Backend) GetORM() *gorm.DB {
	return b.db
}

func (b *Backend) Set(key string, value []byte) error {
	tx := b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&Entry{
		Name:  key,
		Value: value,
	})
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "upsert")
	}
	return nil
}

func (b *Backend) Get(key string) ([]byte, bool, error) {
	var rows []Entry
	tx := b.db.Where("name = ?", key).Limit(1).Find(&rows)
	if tx.Error != nil {
		return nil, false, errors.Wrap(tx.Error, "find")
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Value, true, nil
}

func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql db")
	}
	return sqlDB.Close()
}
