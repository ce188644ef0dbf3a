package schemagen

import (
	"bytes"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration file fails to parse
// or validate.
var ErrInvalidConfig = errors.Base("invalid configuration")

// Target languages.
const (
	LangTypeScript = "typescript"
	LangJSONSchema = "jsonschema"
	LangSchema     = "schema"
)

// Config is the YAML form of a generator's options.
//
//	name: petstore
//	renames:
//	  - from: "internal::*"
//	    to: "api::*"
//	foldTransparent: true
//	rules:
//	  - name: documented
//	    on: type
//	    expr: description != ""
//	targets:
//	  - lang: typescript
//	    out: ./web/src/api
type Config struct {
	Name                  string   `yaml:"name"`
	Description           string   `yaml:"description"`
	Packages              []string `yaml:"packages" validate:"dive,required"`
	Renames               []Rename `yaml:"renames" validate:"dive"`
	AllowRedundantRenames bool     `yaml:"allowRedundantRenames"`
	FoldTransparent       bool     `yaml:"foldTransparent"`
	PrependPath           string   `yaml:"prependPath"`
	Prune                 bool     `yaml:"prune"`
	Rules                 []Rule   `yaml:"rules" validate:"dive"`
	Targets               []Target `yaml:"targets" validate:"dive"`
}

// Rename is one rename pass. From is an exact name or a pattern, see
// schema.ParsePattern.
type Rename struct {
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to" validate:"required"`
}

// Target selects an emitter and where it writes.
type Target struct {
	Lang string `yaml:"lang" validate:"required,oneof=typescript jsonschema schema"`
	Out  string `yaml:"out" validate:"required"`

	// File overrides the emitter's default file name.
	File string `yaml:"file"`

	// EnumStyle applies to typescript targets.
	EnumStyle    string `yaml:"enumStyle" validate:"omitempty,oneof=union enum"`
	EmitComments bool   `yaml:"emitComments"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, errors.WithDetails(err, "path", path)
	}
	return cfg, nil
}

// ParseConfig parses and validates YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	return ReadConfig(bytes.NewReader(data))
}

// ReadConfig decodes YAML configuration from r. Unknown keys are errors.
func ReadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.WithDetails(ErrInvalidConfig, "cause", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration's struct tags.
func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = fe.Namespace() + ": " + fe.Tag()
		if fe.Param() != "" {
			problems[i] += "=" + fe.Param()
		}
	}
	return errors.WithDetails(ErrInvalidConfig, "problems", problems)
}
