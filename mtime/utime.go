// Package mtime contains the millisecond timestamps exchanged during bootstrap
// and the clock abstraction used to compare them with local time.
package mtime

import (
	"fmt"
	"math"
	"time"

	"github.com/lareeq/massa/mcodec"
)

// UTime is a number of milliseconds since the Unix epoch.
// Its compact encoding is a single varint.
type UTime uint64

var _ mcodec.Codec = (*UTime)(nil)

// FromTime converts t to a UTime, truncating to whole milliseconds.
// Times before the epoch are clamped to zero.
func FromTime(t time.Time) UTime {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return UTime(ms)
}

// Time converts u to a [time.Time] in the local zone.
func (u UTime) Time() time.Time {
	return time.UnixMilli(int64(u))
}

// maxDurationMillis is the largest whole number of milliseconds
// representable as a [time.Duration].
const maxDurationMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

// Sub returns the signed duration u-v.
// Differences beyond the range of [time.Duration]
// saturate at math.MaxInt64 or math.MinInt64.
func (u UTime) Sub(v UTime) time.Duration {
	if u >= v {
		d := uint64(u - v)
		if d > maxDurationMillis {
			return math.MaxInt64
		}
		return time.Duration(d) * time.Millisecond
	}

	d := uint64(v - u)
	if d > maxDurationMillis {
		return math.MinInt64
	}
	return -time.Duration(d) * time.Millisecond
}

func (u UTime) String() string {
	return u.Time().UTC().Format(time.RFC3339Nano)
}

// AppendCompact implements [mcodec.Encoder].
func (u UTime) AppendCompact(dst []byte, _ *mcodec.SerializationContext) ([]byte, error) {
	if uint64(u) > mcodec.MaxVarintValue {
		return nil, fmt.Errorf("timestamp %d out of encodable range", uint64(u))
	}
	return mcodec.AppendUvarint(dst, uint64(u)), nil
}

// DecodeCompact implements [mcodec.Decoder].
func (u *UTime) DecodeCompact(src []byte, _ *mcodec.SerializationContext) (int, error) {
	v, n, err := mcodec.ReadUvarint(src, "timestamp")
	if err != nil {
		return 0, err
	}
	*u = UTime(v)
	return n, nil
}
