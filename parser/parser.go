// Package parser reads the Vulkan API registry document (vk.xml) into an
// in-memory entity graph consumed by the resolver, filter and generator.
package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	log "github.com/sirupsen/logrus"
)

// Options selects which registry profile to parse. The registry gates
// entries on an api attribute; entries not matching API are skipped.
type Options struct {
	API string
}

// DefaultOptions parses the standard Vulkan profile.
func DefaultOptions() Options { return Options{API: "vulkan"} }

// Parse reads one registry document and builds the full unfiltered entity
// set. The document is read-only; Parse has no other side effects.
func Parse(r io.Reader, opts Options) (*Registry, error) {
	if opts.API == "" {
		opts.API = "vulkan"
	}

	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, malformed("registry", "/registry", "unreadable document: %v", err)
	}
	root := xmlquery.FindOne(doc, "/registry")
	if root == nil {
		return nil, malformed("registry", "/registry", "missing registry root element")
	}

	reg := newRegistry()
	p := &docParser{reg: reg, api: opts.API}

	if err := p.parsePlatforms(root); err != nil {
		return nil, err
	}
	if err := p.parseTypes(root); err != nil {
		return nil, err
	}
	if err := p.parseEnumBlocks(root); err != nil {
		return nil, err
	}
	if err := p.parseCommands(root); err != nil {
		return nil, err
	}
	if err := p.parseFeatures(root); err != nil {
		return nil, err
	}
	if err := p.parseExtensions(root); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"types":    len(reg.Types),
		"commands": len(reg.Commands),
		"features": len(reg.Features),
		"skipped":  p.skipped,
	}).Debug("registry parsed")

	return reg, nil
}

type docParser struct {
	reg     *Registry
	api     string
	skipped int
}

// apiMatches checks an api attribute against the selected profile. The
// attribute is a comma-separated list; absence means all profiles.
func (p *docParser) apiMatches(attr string) bool {
	if attr == "" {
		return true
	}
	for _, a := range strings.Split(attr, ",") {
		if strings.TrimSpace(a) == p.api {
			return true
		}
	}
	p.skipped++
	return false
}

func (p *docParser) parsePlatforms(root *xmlquery.Node) error {
	for _, n := range xmlquery.Find(root, "platforms/platform") {
		name := n.SelectAttr("name")
		if name == "" {
			return malformed("platform", "/registry/platforms/platform", "missing name attribute")
		}
		p.reg.Platforms[name] = n.SelectAttr("protect")
	}
	return nil
}

func (p *docParser) parseTypes(root *xmlquery.Node) error {
	for _, n := range xmlquery.Find(root, "types/type") {
		if !p.apiMatches(n.SelectAttr("api")) {
			continue
		}
		category := n.SelectAttr("category")
		name := typeName(n)
		path := fmt.Sprintf("/registry/types/type[%s]", name)

		if alias := n.SelectAttr("alias"); alias != "" {
			if name == "" {
				return malformed("type", path, "alias declaration missing name attribute")
			}
			p.reg.addType(&TypeDef{Name: name, Kind: categoryKind(category), Alias: alias})
			continue
		}

		switch category {
		case "basetype":
			if name == "" {
				return malformed("type", path, "basetype missing name element")
			}
			td := &TypeDef{Name: name, Kind: KindBase}
			if t := xmlquery.FindOne(n, "type"); t != nil {
				td.Underlying = t.InnerText()
			}
			p.reg.addType(td)

		case "handle":
			if name == "" {
				return malformed("type", path, "handle missing name element")
			}
			p.reg.addType(&TypeDef{
				Name:         name,
				Kind:         KindHandle,
				Dispatchable: !strings.Contains(n.InnerText(), "NON_DISPATCHABLE"),
			})

		case "enum":
			if name == "" {
				return malformed("type", path, "enum missing name attribute")
			}
			p.reg.addType(&TypeDef{Name: name, Kind: KindEnum, Width: 32})

		case "bitmask":
			if name == "" {
				return malformed("type", path, "bitmask missing name element")
			}
			td := &TypeDef{
				Name:       name,
				Kind:       KindBitmask,
				Underlying: n.SelectAttr("requires"),
				Width:      32,
			}
			if t := xmlquery.FindOne(n, "type"); t != nil && t.InnerText() == "VkFlags64" {
				td.Width = 64
				if td.Underlying == "" {
					td.Underlying = n.SelectAttr("bitvalues")
				}
			}
			p.reg.addType(td)

		case "struct", "union":
			if name == "" {
				return malformed("type", path, "%s missing name attribute", category)
			}
			members, err := p.parseMembers(n, path)
			if err != nil {
				return err
			}
			kind := KindStruct
			if category == "union" {
				kind = KindUnion
			}
			p.reg.addType(&TypeDef{
				Name:     name,
				Kind:     kind,
				Platform: n.SelectAttr("platform"),
				Members:  members,
			})

		case "funcpointer":
			if name == "" {
				return malformed("type", path, "funcpointer missing name element")
			}
			p.reg.addType(&TypeDef{
				Name:       name,
				Kind:       KindFuncPointer,
				Underlying: funcPointerReturn(n),
				Members:    funcPointerParams(n),
			})

		case "define":
			if name == "VK_HEADER_VERSION" {
				p.reg.HeaderVersion = defineValue(n)
			}

		case "", "include":
			// Opaque external types (X11, win32 headers and the like)
			// referenced via requires=. Keep them as placeholders so
			// cross-references stay resolvable.
			if name != "" && p.reg.Type(name) == nil {
				p.reg.addType(&TypeDef{
					Name:     name,
					Kind:     KindOpaque,
					Platform: n.SelectAttr("platform"),
				})
			}

		default:
			return malformed("type", path, "unknown type category %q", category)
		}
	}
	return nil
}

func (p *docParser) parseMembers(n *xmlquery.Node, path string) ([]Member, error) {
	var members []Member
	for _, mn := range xmlquery.Find(n, "member") {
		if !p.apiMatches(mn.SelectAttr("api")) {
			continue
		}
		tn := xmlquery.FindOne(mn, "type")
		nn := xmlquery.FindOne(mn, "name")
		if tn == nil || nn == nil {
			return nil, malformed("member", path, "member missing type or name element")
		}
		text := mn.InnerText()
		members = append(members, Member{
			Name:         nn.InnerText(),
			Type:         tn.InnerText(),
			PointerLevel: strings.Count(text, "*"),
			Const:        strings.HasPrefix(strings.TrimSpace(text), "const"),
			ArrayLen:     arraySuffix(mn, text),
		})
	}
	return members, nil
}

// arraySuffix extracts a fixed-array length from a member or param
// declaration: a constant name from a nested enum element, or the bracket
// literal from the C text.
func arraySuffix(n *xmlquery.Node, text string) string {
	idx := strings.Index(text, "[")
	if idx == -1 {
		return ""
	}
	if en := xmlquery.FindOne(n, "enum"); en != nil {
		return en.InnerText()
	}
	if end := strings.Index(text[idx:], "]"); end != -1 {
		return strings.TrimSpace(text[idx+1 : idx+end])
	}
	return ""
}

// funcPointerReturn extracts the C return type from a funcpointer typedef:
// "typedef void* (VKAPI_PTR *PFN_vkReallocationFunction)(...)" -> "void*".
func funcPointerReturn(n *xmlquery.Node) string {
	text := strings.TrimSpace(n.InnerText())
	text = strings.TrimPrefix(text, "typedef")
	if idx := strings.Index(text, "("); idx != -1 {
		text = text[:idx]
	}
	return strings.ReplaceAll(strings.TrimSpace(text), " ", "")
}

// funcPointerParams extracts parameter types from a funcpointer typedef.
// The registry encodes them as bare <type> children inside the C text.
func funcPointerParams(n *xmlquery.Node) []Member {
	var params []Member
	for i, tn := range xmlquery.Find(n, "type") {
		params = append(params, Member{
			Name:         fmt.Sprintf("arg%d", i),
			Type:         tn.InnerText(),
			PointerLevel: pointerLevelAfter(tn),
		})
	}
	return params
}

// pointerLevelAfter counts the '*' run directly following a type element.
func pointerLevelAfter(tn *xmlquery.Node) int {
	if tn.NextSibling == nil {
		return 0
	}
	text := tn.NextSibling.Data
	level := 0
	for _, r := range text {
		switch r {
		case '*':
			level++
		case ' ', '\t', '\n':
		default:
			return level
		}
	}
	return level
}

func (p *docParser) parseEnumBlocks(root *xmlquery.Node) error {
	for _, block := range xmlquery.Find(root, "enums") {
		name := block.SelectAttr("name")
		path := fmt.Sprintf("/registry/enums[%s]", name)
		if name == "" {
			return malformed("enums", "/registry/enums", "missing name attribute")
		}

		if block.SelectAttr("type") == "" {
			// API constants block.
			for _, en := range xmlquery.Find(block, "enum") {
				if !p.apiMatches(en.SelectAttr("api")) {
					continue
				}
				cn := en.SelectAttr("name")
				if cn == "" {
					return malformed("enum", path, "constant missing name attribute")
				}
				value := en.SelectAttr("value")
				if value == "" {
					if alias := en.SelectAttr("alias"); alias != "" {
						value = alias
					} else {
						return malformed("enum", path, "constant %s has no value or alias", cn)
					}
				}
				p.reg.addConstant(&Constant{Name: cn, Value: value, Type: en.SelectAttr("type")})
			}
			continue
		}

		if td := p.reg.Type(name); td != nil && block.SelectAttr("bitwidth") == "64" {
			td.Width = 64
		}
		for _, en := range xmlquery.Find(block, "enum") {
			if !p.apiMatches(en.SelectAttr("api")) {
				continue
			}
			ev, err := enumValue(en, path)
			if err != nil {
				return err
			}
			p.reg.Enums[name] = append(p.reg.Enums[name], ev)
		}
	}
	return nil
}

func enumValue(en *xmlquery.Node, path string) (EnumValue, error) {
	name := en.SelectAttr("name")
	if name == "" {
		return EnumValue{}, malformed("enum", path, "enum value missing name attribute")
	}
	if alias := en.SelectAttr("alias"); alias != "" {
		return EnumValue{Name: name, Alias: alias}, nil
	}
	if v := en.SelectAttr("value"); v != "" {
		return EnumValue{Name: name, Value: v}, nil
	}
	if bp := en.SelectAttr("bitpos"); bp != "" {
		n, err := strconv.Atoi(bp)
		if err != nil || n < 0 || n > 63 {
			return EnumValue{}, malformed("enum", path, "value %s has invalid bitpos %q", name, bp)
		}
		return EnumValue{Name: name, Value: strconv.FormatUint(1<<uint(n), 10)}, nil
	}
	return EnumValue{}, malformed("enum", path, "value %s has no value, bitpos or alias", name)
}

func (p *docParser) parseCommands(root *xmlquery.Node) error {
	for _, n := range xmlquery.Find(root, "commands/command") {
		if !p.apiMatches(n.SelectAttr("api")) {
			continue
		}

		if name := n.SelectAttr("name"); name != "" {
			alias := n.SelectAttr("alias")
			if alias == "" {
				return malformed("command", fmt.Sprintf("/registry/commands/command[%s]", name),
					"named command form requires an alias attribute")
			}
			p.reg.addCommand(&Command{Name: name, Alias: alias})
			continue
		}

		proto := xmlquery.FindOne(n, "proto")
		if proto == nil {
			return malformed("command", "/registry/commands/command", "missing proto element")
		}
		nameNode := xmlquery.FindOne(proto, "name")
		typeNode := xmlquery.FindOne(proto, "type")
		if nameNode == nil || typeNode == nil {
			return malformed("command", "/registry/commands/command", "proto missing type or name element")
		}
		cmd := &Command{
			Name:       nameNode.InnerText(),
			ReturnType: typeNode.InnerText(),
		}
		path := fmt.Sprintf("/registry/commands/command[%s]", cmd.Name)

		for _, pn := range xmlquery.Find(n, "param") {
			if !p.apiMatches(pn.SelectAttr("api")) {
				continue
			}
			tn := xmlquery.FindOne(pn, "type")
			nn := xmlquery.FindOne(pn, "name")
			if tn == nil || nn == nil {
				return malformed("param", path, "parameter missing type or name element")
			}
			text := pn.InnerText()
			cmd.Params = append(cmd.Params, Param{
				Name:         nn.InnerText(),
				Type:         tn.InnerText(),
				PointerLevel: strings.Count(text, "*"),
				Const:        strings.HasPrefix(strings.TrimSpace(text), "const"),
				ArrayLen:     arraySuffix(pn, text),
			})
		}
		p.reg.addCommand(cmd)
	}
	return nil
}

func (p *docParser) parseFeatures(root *xmlquery.Node) error {
	for _, n := range xmlquery.Find(root, "feature") {
		if !p.apiMatches(n.SelectAttr("api")) {
			continue
		}
		name := n.SelectAttr("name")
		if name == "" {
			return malformed("feature", "/registry/feature", "missing name attribute")
		}
		fg := &FeatureGroup{
			Name:   name,
			Number: n.SelectAttr("number"),
		}
		if err := p.parseRequireBlocks(n, fg, 0); err != nil {
			return err
		}
		p.reg.addFeature(fg)
	}
	return nil
}

func (p *docParser) parseExtensions(root *xmlquery.Node) error {
	for _, n := range xmlquery.Find(root, "extensions/extension") {
		if supported := n.SelectAttr("supported"); !p.apiMatches(supported) {
			continue
		}
		name := n.SelectAttr("name")
		if name == "" {
			return malformed("extension", "/registry/extensions/extension", "missing name attribute")
		}
		number, _ := strconv.Atoi(n.SelectAttr("number"))
		fg := &FeatureGroup{
			Name:        name,
			Number:      n.SelectAttr("number"),
			IsExtension: true,
			Author:      n.SelectAttr("author"),
			Platform:    n.SelectAttr("platform"),
		}
		if dep := n.SelectAttr("depends"); dep != "" {
			fg.Requires = splitDepends(dep)
		} else if req := n.SelectAttr("requires"); req != "" {
			fg.Requires = splitDepends(req)
		}
		if err := p.parseRequireBlocks(n, fg, number); err != nil {
			return err
		}
		p.reg.addFeature(fg)
	}
	return nil
}

// splitDepends flattens a depends expression to its referenced names. The
// boolean structure is irrelevant here; the filter only needs the edges.
func splitDepends(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '+' || r == '(' || r == ')'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (p *docParser) parseRequireBlocks(n *xmlquery.Node, fg *FeatureGroup, extNumber int) error {
	path := fmt.Sprintf("/registry/.../%s/require", fg.Name)
	for _, req := range xmlquery.Find(n, "require") {
		if !p.apiMatches(req.SelectAttr("api")) {
			continue
		}
		for c := req.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			name := c.SelectAttr("name")
			switch c.Data {
			case "type":
				if name == "" {
					return malformed("type", path, "require entry missing name attribute")
				}
				fg.Types = append(fg.Types, name)
			case "command":
				if name == "" {
					return malformed("command", path, "require entry missing name attribute")
				}
				fg.Commands = append(fg.Commands, name)
			case "enum":
				if name == "" {
					return malformed("enum", path, "require entry missing name attribute")
				}
				if err := p.parseRequireEnum(c, fg, extNumber, path); err != nil {
					return err
				}
			case "comment":
			default:
				return malformed(c.Data, path, "unknown require entry")
			}
		}
	}
	return nil
}

// parseRequireEnum handles enum entries inside require blocks: plain
// references, new constants, and values extending an existing enum with
// the registry's extension-offset encoding.
func (p *docParser) parseRequireEnum(c *xmlquery.Node, fg *FeatureGroup, extNumber int, path string) error {
	name := c.SelectAttr("name")

	extends := c.SelectAttr("extends")
	if extends == "" {
		if v := c.SelectAttr("value"); v != "" {
			p.reg.addConstant(&Constant{Name: name, Value: v, Feature: fg.Name})
			fg.Constants = append(fg.Constants, name)
		} else if alias := c.SelectAttr("alias"); alias != "" {
			p.reg.addConstant(&Constant{Name: name, Value: alias, Feature: fg.Name})
			fg.Constants = append(fg.Constants, name)
		}
		// A bare reference to an existing constant needs no new entry.
		return nil
	}

	ev := EnumValue{Name: name, Feature: fg.Name}
	switch {
	case c.SelectAttr("alias") != "":
		ev.Alias = c.SelectAttr("alias")
	case c.SelectAttr("value") != "":
		ev.Value = c.SelectAttr("value")
	case c.SelectAttr("bitpos") != "":
		bp, err := strconv.Atoi(c.SelectAttr("bitpos"))
		if err != nil || bp < 0 || bp > 63 {
			return malformed("enum", path, "value %s has invalid bitpos", name)
		}
		ev.Value = strconv.FormatUint(1<<uint(bp), 10)
	case c.SelectAttr("offset") != "":
		offset, err := strconv.Atoi(c.SelectAttr("offset"))
		if err != nil {
			return malformed("enum", path, "value %s has invalid offset %q", name, c.SelectAttr("offset"))
		}
		num := extNumber
		if en := c.SelectAttr("extnumber"); en != "" {
			if num, err = strconv.Atoi(en); err != nil {
				return malformed("enum", path, "value %s has invalid extnumber %q", name, en)
			}
		}
		if num == 0 {
			return malformed("enum", path, "value %s uses offset outside an extension", name)
		}
		v := int64(1000000000 + (num-1)*1000 + offset)
		if c.SelectAttr("dir") == "-" {
			v = -v
		}
		ev.Value = strconv.FormatInt(v, 10)
	default:
		return malformed("enum", path, "value %s extends %s without value, bitpos, offset or alias", name, extends)
	}

	for _, prev := range p.reg.Enums[extends] {
		if prev.Name == name {
			// Same value introduced by several features; first wins.
			return nil
		}
	}
	p.reg.Enums[extends] = append(p.reg.Enums[extends], ev)
	return nil
}

// validate checks cross-references after the whole document is read:
// every type named by a command or member must be declared, and every
// feature require entry must name a declared entity.
func (p *docParser) validate() error {
	typeKnown := func(name string) bool {
		return IsPrimitive(name) || p.reg.Type(name) != nil
	}

	for _, td := range p.reg.Types {
		path := fmt.Sprintf("/registry/types/type[%s]", td.Name)
		if td.Alias != "" && p.reg.Type(td.Alias) == nil {
			return malformed("type", path, "aliases undeclared type %s", td.Alias)
		}
		for _, m := range td.Members {
			if !typeKnown(m.Type) {
				return malformed("member", path, "member %s references undeclared type %s", m.Name, m.Type)
			}
		}
		if td.Kind == KindFuncPointer && td.Underlying != "" {
			if ret := ResultType(td.Underlying); !typeKnown(ret) {
				return malformed("type", path, "return type %s is undeclared", ret)
			}
		}
	}

	for _, cmd := range p.reg.Commands {
		path := fmt.Sprintf("/registry/commands/command[%s]", cmd.Name)
		if cmd.Alias != "" {
			if p.reg.Command(cmd.Alias) == nil {
				return malformed("command", path, "aliases undeclared command %s", cmd.Alias)
			}
			continue
		}
		if !typeKnown(cmd.ReturnType) {
			return malformed("command", path, "return type %s is undeclared", cmd.ReturnType)
		}
		for _, param := range cmd.Params {
			if !typeKnown(param.Type) {
				return malformed("param", path, "parameter %s references undeclared type %s", param.Name, param.Type)
			}
		}
	}

	for _, fg := range p.reg.Features {
		path := fmt.Sprintf("/registry/.../%s", fg.Name)
		if fg.Platform != "" {
			if _, ok := p.reg.Platforms[fg.Platform]; !ok {
				return malformed("extension", path, "undeclared platform %s", fg.Platform)
			}
		}
		for _, name := range fg.Commands {
			if p.reg.Command(name) == nil {
				return malformed("command", path, "requires undeclared command %s", name)
			}
		}
		for _, name := range fg.Types {
			if !typeKnown(name) {
				return malformed("type", path, "requires undeclared type %s", name)
			}
		}
	}
	return nil
}

// typeName returns the declared name of a type element, from either the
// name attribute or the nested name element.
func typeName(n *xmlquery.Node) string {
	if name := n.SelectAttr("name"); name != "" {
		return name
	}
	if nn := xmlquery.FindOne(n, "name"); nn != nil {
		return nn.InnerText()
	}
	return ""
}

func categoryKind(category string) TypeKind {
	switch category {
	case "basetype":
		return KindBase
	case "handle":
		return KindHandle
	case "enum":
		return KindEnum
	case "bitmask":
		return KindBitmask
	case "struct":
		return KindStruct
	case "union":
		return KindUnion
	case "funcpointer":
		return KindFuncPointer
	default:
		return KindOpaque
	}
}

// defineValue extracts the trailing literal of a #define type entry.
func defineValue(n *xmlquery.Node) string {
	text := n.InnerText()
	idx := strings.LastIndex(text, "VK_HEADER_VERSION")
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(text[idx+len("VK_HEADER_VERSION"):])
}
