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


// Package storage provides the key-value storage abstraction for localstore.
//
// This package defines the Store contract that decouples calling code from the
// backing store actually in use. Three backends implement it:
//
//   - memory: an in-process map, always available, never fails
//   - localstorage: a synchronous string key/value area with JSON values
//   - indexeddb: a transactional object store with a long-lived connection
//
// The root localstore package chooses one of them once, based on what the
// runtime environment offers, and hands it out as a Store.
//
// # Absent values
//
// The untyped nil value is the absent marker. Get returns nil, nil for a
// missing key, and Set with a nil value deletes the key:
//
//	v, err := store.Get(ctx, "settings")
//	if err != nil {
//	    return err
//	}
//	if v == nil {
//	    // never written
//	}
//
// # Errors
//
// Every operation is fallible. Failures match one of the sentinel errors of
// this package with errors.Is; the native platform error stays in the chain:
//
//   - ErrBackingStoreUnusable: the backend could not connect; permanent
//   - ErrSerializationRejected (ErrNotPlainValue, ErrEncodeFailed): bad value
//   - ErrPlatformWrite: the platform refused a write, e.g. quota exceeded
//   - ErrDecodeFailure: stored data could not be decoded
//   - ErrTransactionUnavailable: the object store went away
//
// Nothing is retried automatically.
//
// # Key iteration
//
// Keys returns an iter.Seq2 that is lazy and single-use:
//
//	for key, err := range store.Keys(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(key)
//	}
//
// # Thread Safety
//
// All backends are safe for concurrent use from multiple goroutines.
package storage
