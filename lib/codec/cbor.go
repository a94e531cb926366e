// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the canonical CBOR configuration shared by
// everything that puts CBOR on a wire — today that is the sync token
// payload. Centralizing the modes guarantees that the same logical
// value always encodes to identical bytes, which matters because the
// token signature covers the encoded payload.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields, so tokens
// minted by a newer process version still verify here.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Any-typed targets decode maps as map[string]any rather than
		// the CBOR default map[interface{}]interface{}, keeping decoded
		// values compatible with encoding/json.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
