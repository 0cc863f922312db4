package parser

import "strings"

// TypeKind classifies a registry type declaration.
type TypeKind int

const (
	KindOpaque TypeKind = iota
	KindBase
	KindHandle
	KindEnum
	KindBitmask
	KindStruct
	KindUnion
	KindFuncPointer
)

func (k TypeKind) String() string {
	switch k {
	case KindBase:
		return "basetype"
	case KindHandle:
		return "handle"
	case KindEnum:
		return "enum"
	case KindBitmask:
		return "bitmask"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindFuncPointer:
		return "funcpointer"
	default:
		return "opaque"
	}
}

// Member is one ordered field of a struct or union, or one parameter of a
// funcpointer type. Type names another TypeDef or a C primitive.
type Member struct {
	Name         string
	Type         string
	PointerLevel int
	Const        bool
	ArrayLen     string // fixed-size array length: a literal or a constant name
}

// TypeDef is a single registry type declaration.
type TypeDef struct {
	Name         string
	Kind         TypeKind
	Alias        string // non-empty when this type aliases another
	Underlying   string // base alias target, or the requires= enum of a bitmask
	Width        int    // enum/bitmask underlying width in bits
	Dispatchable bool   // handles only
	Platform     string // platform tag gating this type, "" if ungated
	Members      []Member
	DeclIndex    int
}

// Param is one ordered command parameter.
type Param struct {
	Name         string
	Type         string
	PointerLevel int
	Const        bool
	ArrayLen     string // fixed-size array length: a literal or a constant name
}

// Command is a registry entry point. Platform gating reaches commands
// only through their feature groups.
type Command struct {
	Name       string
	Alias      string
	ReturnType string
	Params     []Param
	DeclIndex  int

	// Features is the resolved set of feature-group names this command
	// belongs to, in group declaration order. Filled by the resolver.
	Features []string
}

// Constant is a registry API constant.
type Constant struct {
	Name      string
	Value     string
	Type      string // typed constant's TypeDef name, "" for untyped
	Feature   string // feature group introducing it, "" for core constants
	DeclIndex int
}

// EnumValue is one value of an enum or bitmask block.
type EnumValue struct {
	Name    string
	Value   string // resolved literal (bitpos entries are pre-shifted)
	Alias   string
	Feature string // feature group extending the enum, "" for block values
}

// FeatureGroup is a core API version or a named extension, with the
// ordered lists of entities it introduces.
type FeatureGroup struct {
	Name        string
	Number      string // core version number or extension number
	IsExtension bool
	Author      string
	Platform    string // platform tag, "" for platform-independent
	Requires    []string
	Types       []string
	Commands    []string
	Constants   []string
	DeclIndex   int
}

// Registry is the full unfiltered entity set parsed from one registry
// document. It is built once per generation run and treated as read-only
// downstream, except for the resolver filling Command.Features.
type Registry struct {
	HeaderVersion string
	Platforms     map[string]string // tag -> protect condition
	Types         []*TypeDef
	Commands      []*Command
	Constants     []*Constant
	Enums         map[string][]EnumValue // enum/bitmask type name -> values
	Features      []*FeatureGroup

	typeIndex    map[string]*TypeDef
	commandIndex map[string]*Command
	featureIndex map[string]*FeatureGroup
}

// Type returns the named TypeDef, or nil.
func (r *Registry) Type(name string) *TypeDef { return r.typeIndex[name] }

// Command returns the named command, or nil.
func (r *Registry) Command(name string) *Command { return r.commandIndex[name] }

// Feature returns the named feature group, or nil.
func (r *Registry) Feature(name string) *FeatureGroup { return r.featureIndex[name] }

func (r *Registry) addType(t *TypeDef) {
	t.DeclIndex = len(r.Types)
	r.Types = append(r.Types, t)
	r.typeIndex[t.Name] = t
}

func (r *Registry) addCommand(c *Command) {
	c.DeclIndex = len(r.Commands)
	r.Commands = append(r.Commands, c)
	r.commandIndex[c.Name] = c
}

func (r *Registry) addConstant(c *Constant) {
	c.DeclIndex = len(r.Constants)
	r.Constants = append(r.Constants, c)
}

func (r *Registry) addFeature(f *FeatureGroup) {
	f.DeclIndex = len(r.Features)
	r.Features = append(r.Features, f)
	r.featureIndex[f.Name] = f
}

func newRegistry() *Registry {
	return &Registry{
		Platforms:    make(map[string]string),
		Enums:        make(map[string][]EnumValue),
		typeIndex:    make(map[string]*TypeDef),
		commandIndex: make(map[string]*Command),
		featureIndex: make(map[string]*FeatureGroup),
	}
}

// primitives are C types the registry references without declaring.
var primitives = map[string]bool{
	"void": true, "char": true, "float": true, "double": true,
	"int8_t": true, "uint8_t": true, "int16_t": true, "uint16_t": true,
	"int32_t": true, "uint32_t": true, "int64_t": true, "uint64_t": true,
	"size_t": true, "int": true,
}

// IsPrimitive reports whether name is a C primitive rather than a TypeDef.
func IsPrimitive(name string) bool { return primitives[name] }

// ResultType extracts the type name from a funcpointer's C return
// spelling: "VkBool32" -> "VkBool32", "void*" -> "void". Plain names pass
// through, so it is safe on any Underlying value.
func ResultType(c string) string {
	c = strings.TrimRight(c, "*")
	return strings.TrimPrefix(c, "const")
}
