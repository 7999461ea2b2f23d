package vm

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexisbouchez/rubyvm/object"
	"github.com/alexisbouchez/rubyvm/source"
)

const rubyObjectTag = "!ruby/object:"

// defineYAML installs the YAML module and Object#to_yaml.
func (vm *VM) defineYAML() {
	rt := vm.rt
	mod := rt.DefineModule("YAML")
	vm.yamlSyntaxError = rt.DefineClassUnder(mod, "SyntaxError", rt.RuntimeErrorClass)
	load := builtin{-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 1, 1); stop != object.NoStop {
			return v, stop
		}
		text, v, stop := vm.strArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		return vm.yamlLoad(text)
	}}
	vm.installSingleton(mod, map[string]builtin{
		"load":      load,
		"safe_load": load,
		"parse":     load,
		"dump": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.yamlDump(args[0])
		}},
		"load_file": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			path, v, stop := vm.strArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			text, err := source.ReadFile(path)
			if err != nil {
				return vm.Raise(rt.RuntimeErrorClass, "%s", err)
			}
			return vm.yamlLoad(text)
		}},
	})
	vm.install(rt.KernelModule, map[string]builtin{
		"to_yaml": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.yamlDump(self)
		}},
	})
}

func (vm *VM) yamlLoad(text string) (object.Value, object.Stop) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return vm.Raise(vm.yamlSyntaxError, "%s", strings.TrimPrefix(err.Error(), "yaml: "))
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return object.FALSE, object.NoStop
	}
	return vm.fromYAML(doc.Content[0], map[*yaml.Node]object.Value{})
}

// fromYAML converts a decoded node. Aliases resolve to the value already
// built for their anchor.
func (vm *VM) fromYAML(n *yaml.Node, anchors map[*yaml.Node]object.Value) (object.Value, object.Stop) {
	if v, ok := anchors[n]; ok {
		return v, object.NoStop
	}
	switch n.Kind {
	case yaml.AliasNode:
		return vm.fromYAML(n.Alias, anchors)
	case yaml.SequenceNode:
		arr := object.NewArray()
		anchors[n] = arr
		for _, c := range n.Content {
			v, stop := vm.fromYAML(c, anchors)
			if stop != object.NoStop {
				return v, stop
			}
			arr.Elements = append(arr.Elements, v)
		}
		return arr, object.NoStop
	case yaml.MappingNode:
		if strings.HasPrefix(n.Tag, rubyObjectTag) {
			return vm.yamlObject(n, anchors)
		}
		h := object.NewHash()
		anchors[n] = h
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, stop := vm.fromYAML(n.Content[i], anchors)
			if stop != object.NoStop {
				return k, stop
			}
			v, stop := vm.fromYAML(n.Content[i+1], anchors)
			if stop != object.NoStop {
				return v, stop
			}
			h.Set(k, v)
		}
		return h, object.NoStop
	case yaml.ScalarNode:
		return vm.yamlScalar(n)
	}
	return object.NIL, object.NoStop
}

func (vm *VM) yamlScalar(n *yaml.Node) (object.Value, object.Stop) {
	switch n.ShortTag() {
	case "!!null":
		return object.NIL, object.NoStop
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return object.NativeToBool(b), object.NoStop
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return &object.Integer{Value: i}, object.NoStop
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return &object.Float{Value: f}, object.NoStop
		}
	case "!!str":
		if n.Style == 0 && len(n.Value) > 1 && n.Value[0] == ':' {
			return vm.rt.Intern(n.Value[1:]), object.NoStop
		}
	}
	return object.NewString(n.Value), object.NoStop
}

// yamlObject rebuilds a !ruby/object mapping as an instance with the
// mapping's keys as instance variables.
func (vm *VM) yamlObject(n *yaml.Node, anchors map[*yaml.Node]object.Value) (object.Value, object.Stop) {
	name := strings.TrimPrefix(n.Tag, rubyObjectTag)
	found, ok, v, stop := vm.resolveConst(vm.rt.ObjectClass, name)
	if stop != object.NoStop {
		return v, stop
	}
	cls, isClass := found.(*object.RubyClass)
	if !ok || !isClass || cls.IsModule {
		return vm.Raise(vm.rt.ArgumentErrorClass, "undefined class/module %s", name)
	}
	obj, v, stop := vm.allocate(cls)
	if stop != object.NoStop {
		return v, stop
	}
	anchors[n] = obj
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, stop := vm.fromYAML(n.Content[i+1], anchors)
		if stop != object.NoStop {
			return v, stop
		}
		if v, stop := vm.ivarSet(obj, "@"+n.Content[i].Value, v); stop != object.NoStop {
			return v, stop
		}
	}
	return obj, object.NoStop
}

func (vm *VM) yamlDump(v object.Value) (object.Value, object.Stop) {
	n, res, stop := vm.toYAML(v, map[object.Value]bool{})
	if stop != object.NoStop {
		return res, stop
	}
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return vm.Raise(vm.rt.TypeErrorClass, "can't dump %s: %s", vm.rt.RealClassOf(v).Name, err)
	}
	if err := enc.Close(); err != nil {
		return vm.Raise(vm.rt.TypeErrorClass, "can't dump %s: %s", vm.rt.RealClassOf(v).Name, err)
	}
	if (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode) && len(n.Content) > 0 {
		return object.NewString("---\n" + sb.String()), object.NoStop
	}
	return object.NewString("--- " + sb.String()), object.NoStop
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	return object.FormatFloat(f)
}

// toYAML builds the node tree for v. Containers met again while still
// being dumped are rejected.
func (vm *VM) toYAML(v object.Value, active map[object.Value]bool) (*yaml.Node, object.Value, object.Stop) {
	switch v := v.(type) {
	case *object.Nil:
		return scalar("!!null", ""), nil, object.NoStop
	case *object.Boolean:
		return scalar("!!bool", strconv.FormatBool(v.Value)), nil, object.NoStop
	case *object.Integer:
		return scalar("!!int", strconv.FormatInt(v.Value, 10)), nil, object.NoStop
	case *object.Float:
		return scalar("!!float", yamlFloat(v.Value)), nil, object.NoStop
	case *object.String:
		n := scalar("!!str", v.Value)
		if strings.HasPrefix(v.Value, ":") {
			n.Style = yaml.DoubleQuotedStyle
		}
		return n, nil, object.NoStop
	case *object.Symbol:
		return scalar("!!str", ":"+v.Name), nil, object.NoStop
	}

	if active[v] {
		res, stop := vm.Raise(vm.rt.ArgumentErrorClass, "recursive structure can't be dumped")
		return nil, res, stop
	}
	active[v] = true
	defer delete(active, v)

	switch v := v.(type) {
	case *object.Array:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.Elements {
			c, res, stop := vm.toYAML(e, active)
			if stop != object.NoStop {
				return nil, res, stop
			}
			n.Content = append(n.Content, c)
		}
		return n, nil, object.NoStop
	case *object.Hash:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var res object.Value
		stop := object.NoStop
		v.Each(func(k, val object.Value) bool {
			var kn, vn *yaml.Node
			if kn, res, stop = vm.toYAML(k, active); stop != object.NoStop {
				return false
			}
			if vn, res, stop = vm.toYAML(val, active); stop != object.NoStop {
				return false
			}
			n.Content = append(n.Content, kn, vn)
			return true
		})
		if stop != object.NoStop {
			return nil, res, stop
		}
		return n, nil, object.NoStop
	case *object.Object:
		cls := v.Class()
		if cls.Name == "" {
			res, stop := vm.Raise(vm.rt.TypeErrorClass, "can't dump anonymous class %s", cls.Inspect())
			return nil, res, stop
		}
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: rubyObjectTag + cls.Name}
		for _, name := range v.Ivars.Names() {
			val, _ := v.Ivars.Get(name)
			vn, res, stop := vm.toYAML(val, active)
			if stop != object.NoStop {
				return nil, res, stop
			}
			n.Content = append(n.Content, scalar("!!str", strings.TrimPrefix(name, "@")), vn)
		}
		return n, nil, object.NoStop
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "can't dump %s", vm.rt.RealClassOf(v).Name)
	return nil, res, stop
}
