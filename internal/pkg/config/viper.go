package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, so the key
// "database.url" can be set with OTPGATE_DATABASE_URL.
const EnvPrefix = "OTPGATE"

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// NewViper loads the file at pathFile and reloads it whenever it changes on
// disk. The format is inferred from the extension.
func NewViper(pathFile string) (*Viper, error) {
	v := newViper()

	filename := path.Base(pathFile)
	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(strings.TrimSuffix(filename, path.Ext(filename)))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "error", err)
			return
		}
		slog.Info("config success reloaded", "path", pathFile)
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory. configType is any
// format viper understands ("yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper()
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (vc *Viper) GetInt(key string) int     { return vc.v.GetInt(key) }
func (vc *Viper) GetInt32(key string) int32 { return vc.v.GetInt32(key) }
func (vc *Viper) GetInt64(key string) int64 { return vc.v.GetInt64(key) }

func (vc *Viper) GetUint(key string) uint     { return vc.v.GetUint(key) }
func (vc *Viper) GetUint16(key string) uint16 { return uint16(vc.v.GetUint(key)) }
func (vc *Viper) GetUint32(key string) uint32 { return vc.v.GetUint32(key) }
func (vc *Viper) GetUint64(key string) uint64 { return vc.v.GetUint64(key) }

func (vc *Viper) GetBool(key string) bool { return vc.v.GetBool(key) }

func (vc *Viper) GetFloat32(key string) float32 { return float32(vc.v.GetFloat64(key)) }
func (vc *Viper) GetFloat64(key string) float64 { return vc.v.GetFloat64(key) }

func (vc *Viper) GetString(key string) string { return vc.v.GetString(key) }

func (vc *Viper) scaled(key string, unit time.Duration) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * unit
}

func (vc *Viper) GetMillisecond(key string) time.Duration { return vc.scaled(key, time.Millisecond) }
func (vc *Viper) GetSecond(key string) time.Duration      { return vc.scaled(key, time.Second) }
func (vc *Viper) GetMinute(key string) time.Duration      { return vc.scaled(key, time.Minute) }
func (vc *Viper) GetHour(key string) time.Duration        { return vc.scaled(key, time.Hour) }
func (vc *Viper) GetDay(key string) time.Duration         { return vc.scaled(key, 24*time.Hour) }

func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.v.GetString(key))
	if err != nil {
		return nil
	}

	return data
}

func (vc *Viper) GetArray(key string) []string {
	var raw []string
	if list, ok := vc.v.Get(key).([]any); ok {
		raw = lo.Map(list, func(item any, _ int) string {
			s, _ := item.(string)
			return s
		})
	} else {
		raw = strings.Split(vc.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(raw, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

func (vc *Viper) GetMap(key string) map[string]string {
	m := make(map[string]string)
	for _, pair := range vc.GetArray(key) {
		k, v, ok := strings.Cut(pair, ":")
		if ok {
			m[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	return m
}

// Close implements io.Closer. Viper holds nothing that needs releasing.
func (vc *Viper) Close() error {
	return nil
}
