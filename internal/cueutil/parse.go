// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
)

const (
	// FormatCUE is native CUE syntax.
	FormatCUE Format = "cue"
	// FormatJSON is a JSON document.
	FormatJSON Format = "json"
	// FormatYAML is a YAML document.
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned when a document format cannot be determined.
var ErrUnknownFormat = errors.New("unknown document format")

type (
	// Format identifies the syntax of a document.
	Format string

	// ParseResult contains the result of a successful parse.
	ParseResult struct {
		// User is the document exactly as written, before unification.
		// Field iteration follows declaration order.
		User cue.Value

		// Unified is the document unified with the schema definition.
		Unified cue.Value
	}

	// DecodeResult contains a decoded Go value and the unified CUE value.
	DecodeResult[T any] struct {
		Value   *T
		Unified cue.Value
	}
)

// IsValid returns whether the Format is one of the supported document formats.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatCUE, FormatJSON, FormatYAML:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))}
	}
}

// DetectFormat infers the document format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cue":
		return FormatCUE, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .cue, .json, .yaml or .yml)", ErrUnknownFormat, name)
	}
}

// Compile turns document bytes into a CUE value without applying any schema.
func Compile(ctx *cue.Context, data []byte, opts ...Option) (cue.Value, error) {
	options := resolve(opts)
	filename := options.displayName()

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return cue.Value{}, err
	}

	format := options.format
	if format == "" {
		if options.filename == "" {
			format = FormatCUE
		} else {
			f, err := DetectFormat(options.filename)
			if err != nil {
				return cue.Value{}, err
			}
			format = f
		}
	}

	var v cue.Value
	switch format {
	case FormatCUE:
		v = ctx.CompileBytes(data, cue.Filename(filename))
	case FormatJSON:
		expr, err := cuejson.Extract(filename, data)
		if err != nil {
			return cue.Value{}, FormatError(err, filename)
		}
		v = ctx.BuildExpr(expr, cue.Filename(filename))
	case FormatYAML:
		file, err := cueyaml.Extract(filename, data)
		if err != nil {
			return cue.Value{}, FormatError(err, filename)
		}
		v = ctx.BuildFile(file, cue.Filename(filename))
	default:
		_, errs := format.IsValid()
		return cue.Value{}, errs[0]
	}

	if v.Err() != nil {
		return cue.Value{}, FormatError(v.Err(), filename)
	}
	return v, nil
}

// Parse compiles schema and data, unifies data with the definition at
// schemaPath (e.g. "#Document"), and validates the result.
func Parse(schema, data []byte, schemaPath string, opts ...Option) (*ParseResult, error) {
	options := resolve(opts)
	filename := options.displayName()

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	userValue, err := Compile(ctx, data, opts...)
	if err != nil {
		return nil, err
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult{User: userValue, Unified: unified}, nil
}

// ParseAndDecode runs Parse and decodes the unified value into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*DecodeResult[T], error) {
	res, err := Parse(schema, data, schemaPath, opts...)
	if err != nil {
		return nil, err
	}

	var out T
	if err := res.Unified.Decode(&out); err != nil {
		return nil, FormatError(err, resolve(opts).displayName())
	}
	return &DecodeResult[T]{Value: &out, Unified: res.Unified}, nil
}

// DecodeMap decodes a CUE value into a generic map, the shape viper merges.
func DecodeMap(v cue.Value) (map[string]any, error) {
	var m map[string]any
	if err := v.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func resolve(opts []Option) parseOptions {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (o parseOptions) displayName() string {
	if o.filename == "" {
		return "<input>"
	}
	return o.filename
}
