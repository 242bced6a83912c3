// Package schemas embeds the JSON schemas of the station wire protocol.
package schemas

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed *.schema.json
var FS embed.FS

// Compile compiles one embedded schema, e.g. "act.schema.json".
func Compile(name string) (*jsonschema.Schema, error) {
	b, err := FS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	url := "mem://schemas/" + name
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}
