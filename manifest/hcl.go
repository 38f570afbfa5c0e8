package manifest

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wippyai/reflect-runtime/attribute"
	"github.com/wippyai/reflect-runtime/errors"
)

type hclFile struct {
	Modules []*hclModule `hcl:"module,block"`
}

type hclModule struct {
	Attributes hcl.Expression `hcl:"attributes,optional"`
	Wasm       *string        `hcl:"wasm,optional"`
	Name       string         `hcl:"name,label"`
	Types      []*hclType     `hcl:"type,block"`
	Functions  []*hclFunction `hcl:"function,block"`
}

type hclType struct {
	Attributes hcl.Expression `hcl:"attributes,optional"`
	Base       *string        `hcl:"base,optional"`
	Name       string         `hcl:"name,label"`
	NativeIDs  []uint64       `hcl:"native_ids,optional"`
	Properties []*hclProperty `hcl:"property,block"`
	Functions  []*hclFunction `hcl:"function,block"`
}

type hclProperty struct {
	Attributes hcl.Expression `hcl:"attributes,optional"`
	Get        *string        `hcl:"get,optional"`
	Set        *string        `hcl:"set,optional"`
	Name       string         `hcl:"name,label"`
	Kind       string         `hcl:"kind"`
}

type hclFunction struct {
	Attributes hcl.Expression `hcl:"attributes,optional"`
	Result     *string        `hcl:"result,optional"`
	Native     *string        `hcl:"native,optional"`
	Wasm       *string        `hcl:"wasm,optional"`
	Name       string         `hcl:"name,label"`
	Params     []*hclParam    `hcl:"param,block"`
}

type hclParam struct {
	Name string `hcl:"name,label"`
	Kind string `hcl:"kind"`
}

func parseHCL(data []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.ParseFailed("hcl", diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, errors.ParseFailed("hcl", diags)
	}
	if len(parsed.Modules) != 1 {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "exactly one module block is required")
	}

	src := parsed.Modules[0]
	m := &Manifest{
		Module: src.Name,
		Wasm:   deref(src.Wasm),
	}
	var err error
	if m.Attributes, err = hclAttrs(src.Attributes); err != nil {
		return nil, err
	}

	for _, ht := range src.Types {
		t := Type{
			Name:      ht.Name,
			Base:      deref(ht.Base),
			NativeIDs: ht.NativeIDs,
		}
		if t.Attributes, err = hclAttrs(ht.Attributes); err != nil {
			return nil, err
		}
		for _, hp := range ht.Properties {
			p := Property{Name: hp.Name, Kind: hp.Kind, Get: deref(hp.Get), Set: deref(hp.Set)}
			if p.Attributes, err = hclAttrs(hp.Attributes); err != nil {
				return nil, err
			}
			t.Properties = append(t.Properties, p)
		}
		for _, hf := range ht.Functions {
			fn, err := hclFunc(hf)
			if err != nil {
				return nil, err
			}
			t.Functions = append(t.Functions, fn)
		}
		m.Types = append(m.Types, t)
	}
	for _, hf := range src.Functions {
		fn, err := hclFunc(hf)
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, fn)
	}
	return m, nil
}

func hclFunc(hf *hclFunction) (Function, error) {
	fn := Function{
		Name:   hf.Name,
		Result: deref(hf.Result),
		Native: deref(hf.Native),
		Wasm:   deref(hf.Wasm),
	}
	for _, p := range hf.Params {
		fn.Params = append(fn.Params, Param{Name: p.Name, Kind: p.Kind})
	}
	var err error
	fn.Attributes, err = hclAttrs(hf.Attributes)
	return fn, err
}

// hclAttrs evaluates an attributes expression. Object keys carry no order
// in HCL, so attributes are inserted sorted by key.
func hclAttrs(expr hcl.Expression) (Attrs, error) {
	if expr == nil {
		return Attrs{}, nil
	}
	cv, diags := expr.Value(nil)
	if diags.HasErrors() {
		return Attrs{}, errors.ParseFailed("attributes", diags)
	}
	a, err := attribute.FromCty(cv)
	if err != nil {
		return Attrs{}, err
	}
	return Attrs{Attributes: a}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
