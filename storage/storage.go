package storage

// SeriesKey is the key the series snapshot is stored under.
const SeriesKey = "resistivityData"

type KV interface {
	Set(key string, value []byte) error
	// Get reports found=false when the key has never been written.
	Get(key string) (value []byte, found bool, err error)
	Close() error
}
