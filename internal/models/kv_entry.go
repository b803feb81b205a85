package models

// KVEntry is an opaque blob stored under a key in the kv_store table.
type KVEntry struct {
	Key       string `db:"key" json:"key"`
	Value     []byte `db:"value" json:"value"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for KVEntry.
func (KVEntry) TableName() string {
	return "kv_store"
}
