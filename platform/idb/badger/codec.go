// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"fmt"
	"reflect"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/localstore/platform/idb"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:    cbor.SortCanonical,
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
		TimeTagToAny:   cbor.TimeTagToTime,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// marshalVersion serializes a schema version to bytes.
func marshalVersion(version uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(version))
	varint.Uint64.Marshal(version, buf)
	return buf
}

// unmarshalVersion deserializes a schema version from bytes.
func unmarshalVersion(data []byte) (uint64, error) {
	version, _, err := varint.Uint64.Unmarshal(data)
	return version, err
}

// readVersion returns the stored schema version, 0 for a new database.
func readVersion(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get(versionKey)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version uint64
	err = item.Value(func(val []byte) error {
		var err error
		version, err = unmarshalVersion(val)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: version record: %w", idb.ErrData, err)
	}
	return version, nil
}

// marshalValue serializes a record value to CBOR. Values CBOR cannot
// represent fail with idb.ErrData.
func marshalValue(value any) ([]byte, error) {
	data, err := encMode.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", idb.ErrData, err)
	}
	return data, nil
}

// unmarshalValue deserializes a record value. Maps decode to
// map[string]any, integers to int64 and time tags to time.Time.
func unmarshalValue(data []byte) (any, error) {
	var value any
	if err := decMode.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %w", idb.ErrData, err)
	}
	return value, nil
}
