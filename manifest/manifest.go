// Package manifest declares modules in YAML or HCL files and loads them
// into a runtime.
//
// A YAML manifest:
//
//	module: Physics
//	wasm: physics.wasm
//	types:
//	  - name: Body
//	    native_ids: [42]
//	    properties:
//	      - {name: mass, kind: float}
//	    functions:
//	      - name: Add
//	        params: [{name: a, kind: int}, {name: b, kind: int}]
//	        result: int
//	        wasm: add
//	    attributes:
//	      display: Rigid body
//
// The same module in HCL:
//
//	module "Physics" {
//	  wasm = "physics.wasm"
//	  type "Body" {
//	    native_ids = [42]
//	    property "mass" { kind = "float" }
//	    function "Add" {
//	      param "a" { kind = "int" }
//	      param "b" { kind = "int" }
//	      result = "int"
//	      wasm   = "add"
//	    }
//	    attributes = { display = "Rigid body" }
//	  }
//	}
//
// Functions are implemented either by a host binding, native: "ns#name",
// or by an export of the module's wasm file, wasm: "export". A function
// with neither is declared but unresolvable.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/reflect-runtime/attribute"
	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

// Format identifies the manifest syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".hcl":
		return FormatHCL, true
	}
	return "", false
}

// Manifest is a parsed module definition.
type Manifest struct {
	Attributes Attrs      `yaml:"attributes,omitempty"`
	Module     string     `yaml:"module"`
	Wasm       string     `yaml:"wasm,omitempty"`
	Dir        string     `yaml:"-"`
	Types      []Type     `yaml:"types,omitempty"`
	Functions  []Function `yaml:"functions,omitempty"`
}

// Type declares a type descriptor.
type Type struct {
	Attributes Attrs      `yaml:"attributes,omitempty"`
	Name       string     `yaml:"name"`
	Base       string     `yaml:"base,omitempty"`
	NativeIDs  []uint64   `yaml:"native_ids,omitempty"`
	Properties []Property `yaml:"properties,omitempty"`
	Functions  []Function `yaml:"functions,omitempty"`
}

// Property declares an exposed property. Get and Set name host functions
// ("namespace#name") used as accessors.
type Property struct {
	Attributes Attrs  `yaml:"attributes,omitempty"`
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Get        string `yaml:"get,omitempty"`
	Set        string `yaml:"set,omitempty"`
}

// Function declares a callable member and its implementation.
type Function struct {
	Attributes Attrs   `yaml:"attributes,omitempty"`
	Name       string  `yaml:"name"`
	Result     string  `yaml:"result,omitempty"`
	Native     string  `yaml:"native,omitempty"`
	Wasm       string  `yaml:"wasm,omitempty"`
	Params     []Param `yaml:"params,omitempty"`
}

// Param declares a function input.
type Param struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// Attrs is an ordered attribute set decoded from a manifest.
type Attrs struct {
	attribute.Attributes
}

// ParseFile reads and parses a manifest. The format follows the extension
// and Dir is set to the file's directory.
func ParseFile(path string) (*Manifest, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseParse, "unknown manifest extension: "+path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindNotFound, err, "read "+path)
	}
	m, err := parse(data, path, format)
	if err != nil {
		return nil, err
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Parse parses and validates manifest data.
func Parse(data []byte, format Format) (*Manifest, error) {
	return parse(data, "manifest."+string(format), format)
}

func parse(data []byte, filename string, format Format) (*Manifest, error) {
	var (
		m   *Manifest
		err error
	)
	switch format {
	case FormatYAML:
		m, err = parseYAML(data)
	case FormatHCL:
		m, err = parseHCL(data, filename)
	default:
		return nil, errors.Unsupported(errors.PhaseParse, "manifest format "+string(format))
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks names, kinds and references that can be verified without
// a runtime. Bases naming another module are checked at load time.
func Validate(m *Manifest) error {
	if m.Module == "" {
		return errors.InvalidData(errors.PhaseParse, nil, "module name is required")
	}
	if strings.Contains(m.Module, ".") {
		return errors.InvalidData(errors.PhaseParse, []string{m.Module}, "module name cannot contain '.'")
	}

	members := make(map[string]bool)
	for _, t := range m.Types {
		path := []string{m.Module, t.Name}
		if t.Name == "" {
			return errors.InvalidData(errors.PhaseParse, []string{m.Module}, "type name is required")
		}
		if members[t.Name] {
			return errors.DuplicateTypeName(m.Module, t.Name)
		}
		if t.Base != "" && !strings.Contains(t.Base, ".") && !members[t.Base] {
			return errors.InvalidData(errors.PhaseParse, path, "base "+t.Base+" must be declared before it is used")
		}
		members[t.Name] = true

		for _, id := range t.NativeIDs {
			if id == 0 {
				return errors.InvalidData(errors.PhaseParse, path, "native id 0 is reserved")
			}
		}

		names := make(map[string]bool)
		for _, p := range t.Properties {
			if p.Name == "" {
				return errors.InvalidData(errors.PhaseParse, path, "property name is required")
			}
			if names[p.Name] {
				return errors.DuplicateName(path, "property", p.Name)
			}
			names[p.Name] = true
			if _, ok := value.ParseKind(p.Kind); !ok {
				return errors.InvalidData(errors.PhaseParse, append(path, p.Name), "unknown kind "+p.Kind)
			}
			if p.Set != "" && p.Get == "" {
				return errors.InvalidData(errors.PhaseParse, append(path, p.Name), "set requires get")
			}
		}
		for _, fn := range t.Functions {
			if names[fn.Name] {
				return errors.DuplicateName(path, "member", fn.Name)
			}
			names[fn.Name] = true
			if err := validateFunction(path, fn, m.Wasm != ""); err != nil {
				return err
			}
		}
	}

	for _, fn := range m.Functions {
		if members[fn.Name] {
			return errors.DuplicateName([]string{m.Module}, "member", fn.Name)
		}
		members[fn.Name] = true
		if err := validateFunction([]string{m.Module}, fn, m.Wasm != ""); err != nil {
			return err
		}
	}
	return nil
}

func validateFunction(owner []string, fn Function, hasWasm bool) error {
	if fn.Name == "" {
		return errors.InvalidData(errors.PhaseParse, owner, "function name is required")
	}
	path := append(append([]string{}, owner...), fn.Name)
	if fn.Native != "" && fn.Wasm != "" {
		return errors.InvalidData(errors.PhaseParse, path, "native and wasm are mutually exclusive")
	}
	if fn.Native != "" && !strings.Contains(fn.Native, "#") {
		return errors.InvalidData(errors.PhaseParse, path, "native reference must be namespace#name")
	}
	if fn.Wasm != "" && !hasWasm {
		return errors.InvalidData(errors.PhaseParse, path, "wasm export used but module declares no wasm file")
	}
	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if p.Name != "" {
			if seen[p.Name] {
				return errors.DuplicateName(path, "parameter", p.Name)
			}
			seen[p.Name] = true
		}
		if _, ok := value.ParseKind(p.Kind); !ok {
			return errors.InvalidData(errors.PhaseParse, path, "unknown parameter kind "+p.Kind)
		}
	}
	if fn.Result != "" {
		if _, ok := value.ParseKind(fn.Result); !ok {
			return errors.InvalidData(errors.PhaseParse, path, "unknown result kind "+fn.Result)
		}
	}
	return nil
}
