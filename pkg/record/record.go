package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/kvlog/pkg/types"
)

// LegacyTombstone is the pre-codec tombstone literal some writers still
// emit directly as a record's raw bytes, kept for backward
// compatibility on consume only; new writers never produce it.
const LegacyTombstone = "__delete_key__"

// Encode serializes a logical value into the three-element record
// envelope [timestamp_ms, binary_flag, payload]. If ts is nil, the
// current wall-clock time is used. A []byte value is carried as
// base64 text with binary_flag=1; any other JSON-representable value
// is carried verbatim with binary_flag=0. The result is UTF-8 JSON
// with non-ASCII characters left unescaped.
func Encode(value any, ts *int64) ([]byte, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: nil is not a valid record value", types.ErrTypeError)
	}

	millis := int64(0)
	if ts != nil {
		millis = *ts
	} else {
		millis = time.Now().UnixMilli()
	}

	var flag int
	var payload any
	switch v := value.(type) {
	case []byte:
		flag = 1
		payload = base64.StdEncoding.EncodeToString(v)
	default:
		flag = 0
		payload = v
	}

	arr := [3]any{millis, flag, payload}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTypeError, err)
	}

	// json.Encoder.Encode appends a trailing newline; the record is a
	// single self-contained byte string, so drop it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a record envelope and returns its logical value and
// timestamp. A binary_flag of 1 decodes the payload from base64 into
// []byte; otherwise the payload is returned as the raw JSON value
// (string, float64, bool, map[string]any, []any, or nil).
func Decode(raw []byte) (value any, timestampMs int64, err error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", types.ErrDecodeError, err)
	}
	if len(arr) != 3 {
		return nil, 0, fmt.Errorf("%w: expected 3 elements, got %d", types.ErrDecodeError, len(arr))
	}

	if err := json.Unmarshal(arr[0], &timestampMs); err != nil {
		return nil, 0, fmt.Errorf("%w: bad timestamp: %v", types.ErrDecodeError, err)
	}

	var flag int
	if err := json.Unmarshal(arr[1], &flag); err != nil {
		return nil, 0, fmt.Errorf("%w: bad binary_flag: %v", types.ErrDecodeError, err)
	}

	if flag == 1 {
		var encoded string
		if err := json.Unmarshal(arr[2], &encoded); err != nil {
			return nil, 0, fmt.Errorf("%w: bad base64 payload: %v", types.ErrDecodeError, err)
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", types.ErrDecodeError, err)
		}
		return decoded, timestampMs, nil
	}

	var payload any
	if err := json.Unmarshal(arr[2], &payload); err != nil {
		return nil, 0, fmt.Errorf("%w: bad payload: %v", types.ErrDecodeError, err)
	}
	return payload, timestampMs, nil
}

// IsTombstone reports whether raw is a tombstone: either literally
// empty bytes, published straight to the log with no envelope at all,
// or the legacy literal some writers still emit directly. Neither form
// passes through Encode/Decode, so this never attempts to parse raw as
// a record envelope.
func IsTombstone(raw []byte) (bool, error) {
	return len(raw) == 0 || string(raw) == LegacyTombstone, nil
}
