// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes the environment variables read by Loader.
const DefaultEnvPrefix = "PIPEX"

// Loader loads a File from defaults, an optional YAML file and the
// environment.
type Loader struct {
	path      string
	envPrefix string
	lookupEnv func(string) (string, bool)
}

// NewLoader returns a loader reading only defaults and the environment.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// WithPath sets the YAML file to read. The file must exist.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables environment overrides.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load loads and validates the configuration.
func (l *Loader) Load() (*File, error) {
	f := Default()
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("pipex/config: %w", err)
		}
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("pipex/config: parse %s: %w", l.path, err)
		}
	}
	if l.envPrefix != "" {
		if err := l.fromEnv(reflect.ValueOf(f).Elem(), l.envPrefix); err != nil {
			return nil, fmt.Errorf("pipex/config: %w", err)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("pipex/config: invalid configuration: %w", err)
	}
	return f, nil
}

// Load loads the configuration from the YAML file at path and the
// environment. An empty path reads only the environment.
func Load(path string) (*File, error) {
	return NewLoader().WithPath(path).Load()
}

func (l *Loader) fromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			if err := l.fromEnv(field, key); err != nil {
				return err
			}
			continue
		}
		s, ok := l.lookupEnv(key)
		if !ok || s == "" {
			continue
		}
		if err := setField(field, s); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func setField(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		field.SetFloat(x)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
