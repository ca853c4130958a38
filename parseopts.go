package mathparse

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	nodeopt struct {
		name string
		ctor NodeConstructor
	}
	nodesopt map[string]NodeConstructor
	numsopt  NumberConfig
	kindopt  NumberKind
	precopt  uint
)

// parsectx holds the configuration of a parse. It is also a ParseOption.
type parsectx struct {
	// custom is the set of names that parse as custom nodes.
	custom map[string]NodeConstructor
	// nums is the numeric policy for constants.
	nums NumberConfig
}

// ParseNode makes a name parse as a custom node. The name may be followed by a
// parenthesized argument list, which is passed to ctor. To disable a custom
// node, pass nil for ctor.
func ParseNode(name string, ctor NodeConstructor) ParseOption {
	return &nodeopt{name, ctor}
}

func (o *nodeopt) parseOption(p parsectx) parsectx {
	p.custom = copynodes(p.custom, 1)
	p.custom[o.name] = o.ctor
	return p
}

// ParseNodes sets a group of custom nodes for parsing. To disable any custom
// node, set it to nil.
func ParseNodes(ctors map[string]NodeConstructor) ParseOption {
	return nodesopt(ctors)
}

func (o nodesopt) parseOption(p parsectx) parsectx {
	p.custom = copynodes(p.custom, len(o))
	for k, v := range o {
		p.custom[k] = v
	}
	return p
}

// copynodes copies a custom node table so that options never modify a map
// that a caller or preset still holds.
func copynodes(m map[string]NodeConstructor, extra int) map[string]NodeConstructor {
	r := make(map[string]NodeConstructor, len(m)+extra)
	for k, v := range m {
		r[k] = v
	}
	return r
}

// Numbers sets the numeric policy for constants.
func Numbers(cfg NumberConfig) ParseOption {
	return numsopt(cfg)
}

func (o numsopt) parseOption(p parsectx) parsectx {
	p.nums = NumberConfig(o)
	return p
}

// NumberType sets the representation of numeric constants, keeping the rest
// of the numeric policy.
func NumberType(kind NumberKind) ParseOption {
	return kindopt(kind)
}

func (o kindopt) parseOption(p parsectx) parsectx {
	p.nums.Kind = NumberKind(o)
	return p
}

// Precision sets the precision in bits of NumberBig constants.
func Precision(bits uint) ParseOption {
	return precopt(bits)
}

func (o precopt) parseOption(p parsectx) parsectx {
	p.nums.Prec = uint(o)
	return p
}

// ParsingPreset creates a parsing preset that may be more efficient when using
// the same non-default parsing options for many calls to Parse. A preset
// panics when it would change any option from the default, but it is safe to
// apply other options after a preset.
func ParsingPreset(opts ...ParseOption) ParseOption {
	p := parsectx{nums: DefaultNumberConfig}
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	return &p
}

func (o *parsectx) parseOption(p parsectx) parsectx {
	if p.custom != nil || p.nums != DefaultNumberConfig {
		panic("mathparse: preset applied to non-default parse config")
	}
	// The preset's table is shared between parses but never written.
	p.custom = o.custom
	p.nums = o.nums
	return p
}
