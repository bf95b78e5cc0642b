// Package config publishes a board's embedded configuration as retained
// config/<key> messages.
package config

import (
	"context"
	"encoding/json"
	"sort"

	"mcuhal-go/bus"
	"mcuhal-go/errcode"
	"mcuhal-go/x/logx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey struct{}

// CtxDeviceKey carries the board name in the context handed to Start.
var CtxDeviceKey = ctxKey{}

// WithDevice returns ctx carrying the board name.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, CtxDeviceKey, device)
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
	// Defaults are published for keys the embedded config lacks.
	Defaults map[string]any
}

func NewConfigService(defaults map[string]any) *ConfigService {
	return &ConfigService{Name: serviceName, Defaults: defaults}
}

// publishConfig publishes every key of the device's embedded config, then
// any defaults it does not override. Keys go out in sorted order.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) ([]string, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "missing device in context"}
	}

	vals := map[string]any{}
	raw, ok := EmbeddedConfigLookup(device)
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, &errcode.E{C: errcode.InvalidPayload, Op: "config", Msg: device, Err: err}
		}
	} else if len(s.Defaults) == 0 {
		return nil, &errcode.E{C: errcode.UnknownDevice, Op: "config", Msg: device}
	}
	for k, v := range s.Defaults {
		if _, set := vals[k]; !set {
			vals[k] = v
		}
	}

	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), vals[k], true))
	}
	return keys, nil
}

// Start publishes the configuration. Messages are retained, so services
// started later still see them.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) error {
	keys, err := s.publishConfig(ctx, conn)
	if err != nil {
		logx.Errorf("config: %v", err)
		return err
	}
	logx.Infof("config: published %v", keys)
	return nil
}
