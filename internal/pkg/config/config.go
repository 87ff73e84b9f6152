package config

import (
	"io"
	"time"
)

// TimeConfig reads integer values and scales them to a duration unit.
type TimeConfig interface {
	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration
	GetDay(key string) time.Duration
}

// SignedIntConfig reads signed integers. Missing keys yield zero.
type SignedIntConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
}

// UnsignedIntConfig reads unsigned integers. Missing keys yield zero.
type UnsignedIntConfig interface {
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetUint32(key string) uint32
	GetUint64(key string) uint64
}

// FloatConfig reads floating-point values.
type FloatConfig interface {
	GetFloat32(key string) float32
	GetFloat64(key string) float64
}

// Config is the read side of the runtime configuration.
//
// Implementations return the zero value for missing or unconvertible keys;
// callers that need a fallback apply it themselves.
type Config interface {
	io.Closer
	TimeConfig
	SignedIntConfig
	UnsignedIntConfig
	FloatConfig

	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte

	// GetArray accepts either a YAML list or a "a,b,c" string. Elements are
	// trimmed and empty ones dropped.
	GetArray(key string) []string

	// GetMap parses "k1:v1,k2:v2".
	GetMap(key string) map[string]string
}
