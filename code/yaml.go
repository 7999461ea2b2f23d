package code

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type yamlHandler struct {
	Kind   string `yaml:"kind"`
	Range  []int  `yaml:"range,flow"`
	Target int    `yaml:"target"`
	Mark   int    `yaml:"mark"`
}

type yamlParams struct {
	Argc     int    `yaml:"argc"`
	Optional int    `yaml:"optional,omitempty"`
	Post     int    `yaml:"post,omitempty"`
	Splat    bool   `yaml:"splat,omitempty"`
	Arity    string `yaml:"arity"`
	OptEntry []int  `yaml:"opt_entry,flow,omitempty"`
	Lambda   bool   `yaml:"lambda,omitempty"`
}

type yamlProto struct {
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"kind"`
	File     string        `yaml:"file,omitempty"`
	Line     int           `yaml:"line"`
	Locals   []string      `yaml:"locals,flow,omitempty"`
	Params   *yamlParams   `yaml:"params,omitempty"`
	Handlers []yamlHandler `yaml:"handlers,omitempty"`
	Code     []string      `yaml:"code"`
	Children []*Proto      `yaml:"children,omitempty"`
}

// MarshalYAML renders the proto tree as a structured listing.
func (p *Proto) MarshalYAML() (any, error) {
	out := yamlProto{
		Name:     p.Name,
		Kind:     p.Kind.String(),
		File:     p.File,
		Line:     p.Line,
		Locals:   p.Locals,
		Children: p.Children,
	}
	if p.Kind == MethodUnit || p.Kind == BlockUnit {
		out.Params = &yamlParams{
			Argc:     p.Argc,
			Optional: p.DefaultArgc,
			Post:     p.PostArgc,
			Splat:    p.HasSplat,
			Arity:    p.Arity.String(),
			OptEntry: p.OptEntry,
			Lambda:   p.Lambda,
		}
	}
	for _, h := range p.Handlers {
		out.Handlers = append(out.Handlers, yamlHandler{
			Kind:   h.Kind.String(),
			Range:  []int{h.Start, h.End},
			Target: h.Target,
			Mark:   h.Mark,
		})
	}
	out.Code = make([]string, len(p.Code))
	for pc, in := range p.Code {
		out.Code[pc] = fmt.Sprintf("%04d %s", pc, p.InstrString(in))
	}
	return out, nil
}

// DumpYAML encodes p with two-space indentation.
func DumpYAML(p *Proto) (string, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode %s: %w", p.Name, err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
