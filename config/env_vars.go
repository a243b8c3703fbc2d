// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	errExpectedPointerToStruct = errors.New("expected a pointer to a struct")
	errUnsupportedFieldType    = errors.New("unsupported field type")
)

var durationType = reflect.TypeFor[time.Duration]()

// readEnv fills the fields of the struct pointed to by spec from the
// environment variables named in their `env` tags, descending into nested
// structs.
//
// A tag of the form `env:"NAME,overwrite"` replaces any value already set;
// without "overwrite" only zero values are filled.
func readEnv(spec any) error {
	v := reflect.ValueOf(spec)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", errExpectedPointerToStruct, spec)
	}

	return readEnvStruct(v.Elem())
}

func readEnvStruct(v reflect.Value) error {
	t := v.Type()

	for i := range v.NumField() {
		field, structField := v.Field(i), t.Field(i)
		if !field.CanSet() {
			continue
		}

		tag, ok := structField.Tag.Lookup("env")
		if !ok {
			if field.Kind() == reflect.Struct {
				if err := readEnvStruct(field); err != nil {
					return err
				}
			}

			continue
		}

		name, options, _ := strings.Cut(tag, ",")
		overwrite := slices.Contains(strings.Split(options, ","), "overwrite")

		value, exists := os.LookupEnv(name)
		if !exists || (!overwrite && !field.IsZero()) {
			continue
		}

		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("failed to parse %s from env var %s (%q): %w", structField.Name, name, value, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}

		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(value)
	case field.Kind() == reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		field.SetInt(int64(n))
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}

		field.SetBool(b)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(value)))
	default:
		return fmt.Errorf("%w: %s", errUnsupportedFieldType, field.Type())
	}

	return nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(value string) []string {
	items := []string{}

	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
