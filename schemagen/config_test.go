package schemagen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

const sampleConfig = `
name: petstore
description: Pets and owners.
packages:
  - github.com/broady/apischema/internal/testfixtures
renames:
  - from: "testfixtures::"
    to: "api::"
allowRedundantRenames: true
foldTransparent: true
prependPath: v1
prune: true
rules:
  - name: described
    on: function
    expr: description != ""
    message: every function needs a description
targets:
  - lang: typescript
    out: web/src/api
    enumStyle: enum
    emitComments: true
  - lang: jsonschema
    out: docs
    file: petstore.schema.json
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "petstore", cfg.Name)
	assert.Equal(t, []Rename{{From: "testfixtures::", To: "api::"}}, cfg.Renames)
	assert.True(t, cfg.AllowRedundantRenames)
	assert.True(t, cfg.FoldTransparent)
	assert.True(t, cfg.Prune)
	assert.Equal(t, "v1", cfg.PrependPath)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, RuleOnFunction, cfg.Rules[0].On)
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, Target{Lang: LangTypeScript, Out: "web/src/api", EnumStyle: "enum", EmitComments: true}, cfg.Targets[0])
	assert.Equal(t, "petstore.schema.json", cfg.Targets[1].File)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		problem string
	}{
		{"unknown key", "nmae: x\n", ""},
		{"bad yaml", "renames: [\n", ""},
		{"rename without target", "renames:\n  - from: a::B\n", "Config.Renames[0].To: required"},
		{"unknown lang", "targets:\n  - lang: cobol\n    out: x\n", "Config.Targets[0].Lang: oneof=typescript jsonschema schema"},
		{"missing out", "targets:\n  - lang: typescript\n", "Config.Targets[0].Out: required"},
		{"bad enum style", "targets:\n  - lang: typescript\n    out: x\n    enumStyle: const\n", "Config.Targets[0].EnumStyle: oneof=union enum"},
		{"rule subject", "rules:\n  - name: r\n    expr: 'true'\n    on: module\n", "Config.Rules[0].On: oneof=type field function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			if tt.problem != "" {
				assert.Contains(t, errors.AllDetails(err)["problems"], tt.problem)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apischema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "petstore", cfg.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWithConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	cfg.Targets = nil

	s, err := FromApp(petApp()).WithConfig(cfg).Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "petstore", s.Name)
	assert.True(t, s.OutputTypes.Has("api::Pet"))
	assert.False(t, s.OutputTypes.Has("api::PetID"), "folded")
	assert.Equal(t, "/v1/pets/Create", s.FindFunction("v1/pets", "Create").MountPath())
}
