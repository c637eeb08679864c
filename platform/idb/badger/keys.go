package badger

import "github.com/mus-format/mus-go/varint"

// Key layout. Metadata lives under a 0x00 prefix so it sorts before, and
// never collides with, record keys.
var (
	versionKey      = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}
	storeMetaPrefix = []byte{0x00, 'S', 'T', 'O', 'R', 'E', ':'}
)

const recordPrefix = "rec:"

// makeStoreMetaKey generates the registry key of an object store.
// Format: 0x00STORE:name
func makeStoreMetaKey(store string) []byte {
	buf := make([]byte, 0, len(storeMetaPrefix)+len(store))
	buf = append(buf, storeMetaPrefix...)
	return append(buf, store...)
}

// makeStorePrefix generates the prefix shared by every record of a store.
// The name is length-prefixed so no store's prefix is a prefix of another's.
// Format: rec: varint(len(name)) name
func makeStorePrefix(store string) []byte {
	n := varint.Uint64.Size(uint64(len(store)))
	buf := make([]byte, len(recordPrefix)+n+len(store))
	copy(buf, recordPrefix)
	varint.Uint64.Marshal(uint64(len(store)), buf[len(recordPrefix):])
	copy(buf[len(recordPrefix)+n:], store)
	return buf
}

// makeRecordKey generates the key of a record.
// Format: rec: varint(len(name)) name key
func makeRecordKey(store, key string) []byte {
	prefix := makeStorePrefix(store)
	buf := make([]byte, 0, len(prefix)+len(key))
	buf = append(buf, prefix...)
	return append(buf, key...)
}
