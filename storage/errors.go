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


package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrBackingStoreUnusable indicates that the platform store behind a
	// backend could not be opened or does not work. It is permanent for the
	// lifetime of the backend.
	ErrBackingStoreUnusable = errors.New("backing store unusable")

	// ErrSerializationRejected indicates that a value cannot be encoded by
	// the active backend.
	ErrSerializationRejected = errors.New("serialization rejected")

	// ErrNotPlainValue indicates that a value was rejected before encoding
	// because it is not a plain value (nil, bool, number, string, slice or
	// string-keyed map).
	ErrNotPlainValue = fmt.Errorf("%w: not a plain value", ErrSerializationRejected)

	// ErrEncodeFailed indicates that encoding a plain value failed, for
	// example because it contains a NaN or an unsupported nested type.
	ErrEncodeFailed = fmt.Errorf("%w: encoding failed", ErrSerializationRejected)

	// ErrPlatformWrite indicates that the platform refused a write for a
	// reason unrelated to the value, such as an exceeded quota.
	ErrPlatformWrite = errors.New("platform write failure")

	// ErrDecodeFailure indicates that stored data could not be decoded.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrTransactionUnavailable indicates that a transaction could not be
	// opened against the expected object store.
	ErrTransactionUnavailable = errors.New("transaction unavailable")
)
