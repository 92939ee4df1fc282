// Package config provides YAML configuration loading with environment variable override.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads a YAML configuration file into the given struct.
// Fields already set on out act as defaults; values present in the file win,
// and `env` struct tags win over both.
func Load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := Decode(data, out); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadOrDefault loads path when it exists. A missing file is not an error:
// out keeps its defaults and only environment overrides are applied.
func LoadOrDefault(path string, out any) error {
	if path == "" {
		ApplyEnv(out)
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		ApplyEnv(out)
		return nil
	}
	return Load(path, out)
}

// Decode expands ${VAR} references in data, unmarshals it into out and then
// applies environment overrides.
func Decode(data []byte, out any) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return err
	}
	ApplyEnv(out)
	return nil
}

// ApplyEnv sets struct fields from environment variables named by the `env`
// struct tag. Nested structs are walked recursively.
func ApplyEnv(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := val.Field(i)

		if fieldVal.Kind() == reflect.Struct && fieldVal.Type() != durationType {
			if fieldVal.CanAddr() {
				ApplyEnv(fieldVal.Addr().Interface())
			}
			continue
		}

		envTag := field.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envVal, ok := os.LookupEnv(envTag)
		if !ok || !fieldVal.CanSet() {
			continue
		}
		setField(fieldVal, envVal)
	}
}

func setField(fieldVal reflect.Value, envVal string) {
	if fieldVal.Type() == durationType {
		if d, err := time.ParseDuration(envVal); err == nil {
			fieldVal.SetInt(int64(d))
		}
		return
	}

	switch fieldVal.Kind() {
	case reflect.String:
		fieldVal.SetString(envVal)
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(strings.TrimSpace(envVal), 10, 64); err == nil {
			fieldVal.SetInt(n)
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(strings.TrimSpace(envVal), 64); err == nil {
			fieldVal.SetFloat(f)
		}
	case reflect.Bool:
		fieldVal.SetBool(strings.EqualFold(envVal, "true") || envVal == "1")
	case reflect.Slice:
		if fieldVal.Type().Elem().Kind() != reflect.String {
			return
		}
		var parts []string
		for _, p := range strings.Split(envVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		fieldVal.Set(reflect.ValueOf(parts))
	}
}
