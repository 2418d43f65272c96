package model

// Chunk is a bounded window of raw lines read from one shard
type Chunk struct {
	Shard string
	Lines [][]byte
}

// AppsInstalled is a validated record describing the apps installed on one device
type AppsInstalled struct {
	DevType string
	DevId   string
	Lat     float64
	Lon     float64
	Apps    []uint32
}

// Key returns the cache key under which the record is stored
func (a *AppsInstalled) Key() string {
	return a.DevType + ":" + a.DevId
}

// Entry is an encoded record ready to be added to a partition batch
type Entry struct {
	Key   string
	Value []byte
}

// Batch maps cache keys to encoded values.  It is written to a cache as a single bulk operation.
type Batch map[string][]byte

// Keys returns the keys held in the batch in no particular order
func (b Batch) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	return keys
}
