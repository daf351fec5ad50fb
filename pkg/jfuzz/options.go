package jfuzz

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Weight is one entry of an ordered probability table.
type Weight struct {
	Key    string
	Weight int
}

// Weights keeps table entries in declaration order. Order is part of the
// seed contract: the same table in a different order draws differently.
type Weights []Weight

func (w *Weights) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: probability table must be a mapping", n.Line)
	}
	out := make(Weights, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v int
		if err := n.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("line %d: weight of %q: %w", n.Content[i+1].Line, n.Content[i].Value, err)
		}
		out = append(out, Weight{Key: n.Content[i].Value, Weight: v})
	}
	*w = out
	return nil
}

func (w Weights) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range w {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(e.Weight)})
	}
	return n, nil
}

// Get returns the weight for key and whether the key is present.
func (w Weights) Get(key string) (int, bool) {
	for _, e := range w {
		if e.Key == key {
			return e.Weight, true
		}
	}
	return 0, false
}

// With returns a copy of w where key carries weight v.
func (w Weights) With(key string, v int) Weights {
	out := make(Weights, len(w))
	copy(out, w)
	for i := range out {
		if out[i].Key == key {
			out[i].Weight = v
			return out
		}
	}
	return append(out, Weight{Key: key, Weight: v})
}

// StmtWeight is the selection triple of one statement kind: its weight at
// method level, its weight inside loops, and the per-loop-depth divisor
// applied to the in-loop weight.
type StmtWeight struct {
	Kind       string
	Weight     int
	LoopWeight int
	Scale      float64
}

type StmtWeights []StmtWeight

func (s *StmtWeights) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: statements must be a mapping", n.Line)
	}
	out := make(StmtWeights, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var triple []float64
		if err := n.Content[i+1].Decode(&triple); err != nil || len(triple) != 3 {
			return fmt.Errorf("line %d: invalid values for the statement %s", n.Content[i+1].Line, n.Content[i].Value)
		}
		out = append(out, StmtWeight{
			Kind:       n.Content[i].Value,
			Weight:     int(triple[0]),
			LoopWeight: int(triple[1]),
			Scale:      triple[2],
		})
	}
	*s = out
	return nil
}

func (s StmtWeights) lookup(kind string) (StmtWeight, bool) {
	for _, e := range s {
		if e.Kind == kind {
			return e, true
		}
	}
	return StmtWeight{}, false
}

// merge overlays the entries of over onto s, keeping the order of s and
// appending kinds s does not know.
func (s StmtWeights) merge(over StmtWeights) StmtWeights {
	out := make(StmtWeights, len(s))
	copy(out, s)
	for _, e := range over {
		found := false
		for i := range out {
			if out[i].Kind == e.Kind {
				out[i] = e
				found = true
				break
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	return out
}

// Options is the parameter set of one generation run. YAML keys follow the
// names used by existing fuzzer configuration files.
type Options struct {
	Seed uint64 `yaml:"-"`

	Mode             string `yaml:"mode"`
	MainClassName    string `yaml:"mainClassName"`
	Package          string `yaml:"package"`
	OuterControl     bool   `yaml:"outer_control"`
	OuterControlProb int    `yaml:"outer_control_prob"`

	// Loop and array sizing
	MaxSize                  int     `yaml:"max_size"`
	MaxNestedSize            int     `yaml:"max_nested_size"`
	MaxNestedSizeNotMainTest int     `yaml:"max_nested_size_not_mainTest"`
	MinSizeFraction          float64 `yaml:"min_size_fraction"`
	MaxArrDim                int     `yaml:"max_arr_dim"`
	PBigArray                int     `yaml:"p_big_array"`
	MinBigArray              int     `yaml:"min_big_array"`
	MaxBigArray              int     `yaml:"max_big_array"`

	// Text layout
	Width    int `yaml:"width"`
	MaxShift int `yaml:"max_shift"`

	// Classes and methods
	MaxStmts          int  `yaml:"max_stmts"`
	MaxMeths          int  `yaml:"max_meths"`
	MaxArgs           int  `yaml:"max_args"`
	MaxClasses        int  `yaml:"max_classes"`
	MaxThreads        int  `yaml:"max_threads"`
	PConstructor      int  `yaml:"p_constructor"`
	MaxCallersChain   int  `yaml:"max_callers_chain"`
	PNonStaticMethod  int  `yaml:"p_non_static_method"`
	PExtendsClass     int  `yaml:"p_extends_class"`
	PMethodOverride   int  `yaml:"p_method_override"`
	AllowObjectArgs   bool `yaml:"allow_object_args"`
	ExpInvocLoopDepth int  `yaml:"exp_invoc_loop_depth"`

	// Driver methods
	MainTestCallsNum       int `yaml:"mainTest_calls_num"`
	TimeSleepCompleteTier1 int `yaml:"time_sleep_complete_tier1"`
	MainTestCallsNumTier2  int `yaml:"mainTest_calls_num_tier2"`

	// Expressions
	MaxNum       int `yaml:"max_num"`
	MaxExpDepth  int `yaml:"max_exp_depth"`
	PNullLiteral int `yaml:"p_null_literal"`
	PVolatile    int `yaml:"p_volatile"`

	// Statements
	MaxIfStmts        int `yaml:"max_if_stmts"`
	MaxElStmts        int `yaml:"max_el_stmts"`
	MaxTryStmts       int `yaml:"max_try_stmts"`
	MaxLoopStmts      int `yaml:"max_loop_stmts"`
	MaxLoopDepth      int `yaml:"max_loop_depth"`
	StartFrac         int `yaml:"start_frac"`
	MinSmallMethCalls int `yaml:"min_small_meth_calls"`
	MaxSmallMethCalls int `yaml:"max_small_meth_calls"`

	PUnknownLoopLimit          int `yaml:"p_unknown_loop_limit"`
	PInequalityInLoopCondition int `yaml:"p_inequality_in_loop_condition"`
	PLoopIterNumGtMaxSize      int `yaml:"p_loop_iter_num_gt_max_size"`
	PGuaranteedAIOOB           int `yaml:"p_guaranteed_AIIOB_in_infinite_loop_with_inequality"`
	PAIOOBLoopWhenCaught       int `yaml:"p_aioob_loop_when_caught"`
	PNegativeLoopStart         int `yaml:"p_negative_loop_start"`

	PEmptySeq        int `yaml:"p_empty_seq"`
	PElse            int `yaml:"p_else"`
	PTriang          int `yaml:"p_triang"`
	PMethReuse       int `yaml:"p_meth_reuse"`
	PReturn          int `yaml:"p_return"`
	PVarReuse        int `yaml:"p_var_reuse"`
	PClassReuse      int `yaml:"p_class_reuse"`
	PBigSwitch       int `yaml:"p_big_switch"`
	PPackedSwitch    int `yaml:"p_packed_switch"`
	PSwitchEmptyCase int `yaml:"p_switch_empty_case"`

	// Probability tables
	VarTypes    Weights            `yaml:"var_types"`
	Types       Weights            `yaml:"types"`
	ExpKinds    Weights            `yaml:"exp_kind"`
	OpCats      Weights            `yaml:"op_cats"`
	IndKinds    Weights            `yaml:"ind_kinds"`
	Operators   map[string]Weights `yaml:"operators"`
	ForStep     Weights            `yaml:"for_step"`
	IndVarTypes Weights            `yaml:"p_ind_var_type"`
	Statements  StmtWeights        `yaml:"statements"`

	// MaxAttempts bounds every retry loop of the engine and the number of
	// whole-program regenerations when a program is too weak.
	MaxAttempts int `yaml:"max_attempts"`

	Logger *slog.Logger `yaml:"-"`
}

func Defaults() Options {
	return Options{
		Mode:             "default",
		MainClassName:    "Test",
		Package:          "",
		OuterControl:     true,
		OuterControlProb: 3,

		MaxSize:                  100,
		MaxNestedSize:            10000000,
		MaxNestedSizeNotMainTest: 20000,
		MinSizeFraction:          0.5,
		MaxArrDim:                2,
		PBigArray:                20,
		MinBigArray:              12276,
		MaxBigArray:              1000000,

		Width:    120,
		MaxShift: 110,

		MaxStmts:          15,
		MaxMeths:          10,
		MaxArgs:           5,
		MaxClasses:        0,
		MaxThreads:        0,
		PConstructor:      0,
		MaxCallersChain:   2,
		PNonStaticMethod:  50,
		PExtendsClass:     50,
		PMethodOverride:   80,
		AllowObjectArgs:   false,
		ExpInvocLoopDepth: 10,

		MainTestCallsNum:       20,
		TimeSleepCompleteTier1: 5000,
		MainTestCallsNumTier2:  50,

		MaxNum:       0x10000,
		MaxExpDepth:  3,
		PNullLiteral: 30,
		PVolatile:    15,

		MaxIfStmts:        4,
		MaxElStmts:        4,
		MaxTryStmts:       6,
		MaxLoopStmts:      5,
		MaxLoopDepth:      3,
		StartFrac:         16,
		MinSmallMethCalls: 100,
		MaxSmallMethCalls: 10000,

		PUnknownLoopLimit:          0,
		PInequalityInLoopCondition: 0,
		PLoopIterNumGtMaxSize:      0,
		PGuaranteedAIOOB:           20,
		PAIOOBLoopWhenCaught:       80,
		PNegativeLoopStart:         20,

		PEmptySeq:        2,
		PElse:            40,
		PTriang:          30,
		PMethReuse:       50,
		PReturn:          10,
		PVarReuse:        60,
		PClassReuse:      70,
		PBigSwitch:       1,
		PPackedSwitch:    60,
		PSwitchEmptyCase: 5,

		VarTypes: Weights{
			{"non_static", 1}, {"static", 1}, {"local", 10},
			{"static_other", 1}, {"local_other", 1}, {"block", 3},
		},
		Types: Weights{
			{"Array", 2}, {"Object", 0}, {"boolean", 1}, {"String", 0}, {"byte", 1}, {"char", 0},
			{"short", 1}, {"int", 1}, {"long", 1}, {"float", 1}, {"double", 1},
		},
		ExpKinds: Weights{
			{"literal", 20}, {"scalar", 8}, {"array", 2}, {"field", 0}, {"oper", 10},
			{"assign", 1}, {"cond", 0}, {"inlinvoc", 0}, {"invoc", 5}, {"libinvoc", 2},
		},
		OpCats: Weights{
			{"relational", 2}, {"boolean", 1}, {"integral", 5}, {"arith", 30},
			{"uarith", 5}, {"indecrem_pre", 3}, {"indecrem_post", 3}, {"boolean_assn", 1},
			{"integral_assn", 1}, {"arith_assn", 2}, {"object_assn", 0}, {"array_assn", 25},
		},
		IndKinds:    Weights{{"-1", 12}, {"0", 18}, {"+1", 12}, {"any", 1}},
		Operators:   defaultOperators(),
		ForStep:     Weights{{"-3", 1}, {"-2", 1}, {"-1", 4}, {"1", 32}, {"2", 1}, {"3", 1}},
		IndVarTypes: Weights{{"int", 20}, {"long", 5}, {"float", 1}, {"double", 1}},
		Statements: StmtWeights{
			{"ForLoopStmt", 24, 12, 1.5},
			{"WhileDoStmt", 8, 4, 1.5},
			{"EnhancedForStmt", 4, 2, 1.5},
			{"ContinueStmt", 0, 1, 1},
			{"BreakStmt", 0, 1, 1},
			{"IfStmt", 2, 3, 1.5},
			{"SwitchStmt", 1, 1, 1},
			{"AssignmentStmt", 1, 40, 1},
			{"IntDivStmt", 0, 1, 1},
			{"ReturnStmt", 0, 1, 1},
			{"TryStmt", 1, 2, 1},
			{"ExcStmt", 1, 2, 1},
			{"VectStmt", 0, 8, 1},
			{"InvocationStmt", 1, 1, 2},
			{"CondInvocStmt", 10, 1, 2},
			{"SmallMethStmt", 10, 1, 2},
			{"NewThreadStmt", 3, 1, 2},
		},

		MaxAttempts: 100,
	}
}

func defaultOperators() map[string]Weights {
	ones := func(ops ...string) Weights {
		w := make(Weights, len(ops))
		for i, op := range ops {
			w[i] = Weight{Key: op, Weight: 1}
		}
		return w
	}
	return map[string]Weights{
		"relational":    ones("==", "!=", "<", "<=", ">", ">="),
		"boolean":       ones("==", "!=", "&", "|", "^", "&&", "||", "!"),
		"integral":      ones("&", "|", "^", "<<", ">>", ">>>", "~"),
		"arith":         ones("+", "-", "*", "/", "%"),
		"uarith":        ones("-"),
		"indecrem_pre":  ones("++", "--"),
		"indecrem_post": ones("++", "--"),
		"boolean_assn":  ones("="),
		"integral_assn": ones("=", "&=", "|=", "^=", "<<=", ">>=", ">>>="),
		"arith_assn":    ones("=", "+=", "-=", "*=", "/=", "%="),
		"object_assn":   ones("="),
		"array_assn":    ones("="),
	}
}

func checkPercent(name string, v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s value must between [0,100]", name)
	}
	return nil
}

func (o Options) Validate() error {
	if o.Mode != "default" && o.Mode != "MM_extreme" {
		return fmt.Errorf("mode must be default or MM_extreme, got %q", o.Mode)
	}
	if !isJavaIdent(o.MainClassName) {
		return fmt.Errorf("main class name %q is not a Java identifier", o.MainClassName)
	}
	if o.MaxSize < 10 {
		return fmt.Errorf("max_size should not be less than 10")
	}
	if o.MaxNestedSize < o.MaxSize || o.MaxNestedSizeNotMainTest < o.MaxSize {
		return fmt.Errorf("nested size ceilings cannot be smaller than max_size")
	}
	if o.MinSizeFraction < 0 || o.MinSizeFraction >= 1 {
		return fmt.Errorf("min_size_fraction must be in [0,1)")
	}
	if o.MaxStmts < 1 {
		return fmt.Errorf("max_stmts must be at least 1")
	}
	if o.MaxArrDim < 1 {
		return fmt.Errorf("max_arr_dim must be at least 1")
	}
	if o.MaxMeths < 1 {
		return fmt.Errorf("max_meths must be at least 1")
	}
	if o.MaxArgs < 0 {
		return fmt.Errorf("max_args cannot be negative")
	}
	if o.MaxCallersChain < 1 {
		return fmt.Errorf("max_callers_chain must be at least 1")
	}
	if o.MaxClasses < 0 || o.MaxThreads < 0 {
		return fmt.Errorf("class and thread ceilings cannot be negative")
	}
	if o.MaxNum < 2 {
		return fmt.Errorf("max_num must be at least 2")
	}
	if o.MaxExpDepth < 0 {
		return fmt.Errorf("max_exp_depth cannot be negative")
	}
	if o.MaxLoopDepth < 0 || o.StartFrac < 1 {
		return fmt.Errorf("max_loop_depth cannot be negative and start_frac must be positive")
	}
	if o.MinSmallMethCalls < 1 || o.MaxSmallMethCalls <= o.MinSmallMethCalls {
		return fmt.Errorf("small method call counts must satisfy 1 <= min < max")
	}
	if o.OuterControlProb < 1 {
		return fmt.Errorf("outer_control_prob must be at least 1")
	}
	if o.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	for name, v := range map[string]int{
		"p_big_array":                                         o.PBigArray,
		"p_constructor":                                       o.PConstructor,
		"p_non_static_method":                                 o.PNonStaticMethod,
		"p_extends_class":                                     o.PExtendsClass,
		"p_method_override":                                   o.PMethodOverride,
		"p_null_literal":                                      o.PNullLiteral,
		"p_volatile":                                          o.PVolatile,
		"p_unknown_loop_limit":                                o.PUnknownLoopLimit,
		"p_inequality_in_loop_condition":                      o.PInequalityInLoopCondition,
		"p_loop_iter_num_gt_max_size":                         o.PLoopIterNumGtMaxSize,
		"p_guaranteed_AIIOB_in_infinite_loop_with_inequality": o.PGuaranteedAIOOB,
		"p_aioob_loop_when_caught":                            o.PAIOOBLoopWhenCaught,
		"p_negative_loop_start":                               o.PNegativeLoopStart,
		"p_empty_seq":                                         o.PEmptySeq,
		"p_else":                                              o.PElse,
		"p_triang":                                            o.PTriang,
		"p_meth_reuse":                                        o.PMethReuse,
		"p_return":                                            o.PReturn,
		"p_var_reuse":                                         o.PVarReuse,
		"p_class_reuse":                                       o.PClassReuse,
		"p_big_switch":                                        o.PBigSwitch,
		"p_packed_switch":                                     o.PPackedSwitch,
		"p_switch_empty_case":                                 o.PSwitchEmptyCase,
	} {
		if err := checkPercent(name, v); err != nil {
			return err
		}
	}
	if err := validateTable("var_types", o.VarTypes, varCategoryNames); err != nil {
		return err
	}
	if err := validateTable("types", o.Types, nil); err != nil {
		return err
	}
	for _, e := range o.Types {
		if t, ok := ParseType(e.Key); !ok || t == TypeVoid {
			return fmt.Errorf("types: unknown type %q", e.Key)
		}
	}
	if err := validateTable("exp_kind", o.ExpKinds, expKindNames); err != nil {
		return err
	}
	if err := validateTable("op_cats", o.OpCats, opCategoryNames); err != nil {
		return err
	}
	if err := validateTable("ind_kinds", o.IndKinds, []string{"-1", "0", "+1", "any"}); err != nil {
		return err
	}
	for cat, tab := range o.Operators {
		if !contains(opCategoryNames, cat) {
			return fmt.Errorf("operators: unknown category %q", cat)
		}
		for _, e := range tab {
			if _, ok := lookupOperator(e.Key, cat); !ok {
				return fmt.Errorf("operators: %q is not an operator of category %s", e.Key, cat)
			}
		}
	}
	if err := validateTable("for_step", o.ForStep, nil); err != nil {
		return err
	}
	for _, e := range o.ForStep {
		if s, err := strconv.Atoi(e.Key); err != nil || s == 0 {
			return fmt.Errorf("for_step: step %q must be a non-zero integer", e.Key)
		}
	}
	if err := validateTable("p_ind_var_type", o.IndVarTypes, []string{"byte", "short", "int", "long", "float", "double"}); err != nil {
		return err
	}
	for _, s := range o.Statements {
		if _, ok := parseStmtKind(s.Kind); !ok {
			return fmt.Errorf("statements: unknown statement %s", s.Kind)
		}
		if s.Weight < 0 || s.LoopWeight < 0 || s.Scale <= 0 {
			return fmt.Errorf("statements: invalid values for the statement %s", s.Kind)
		}
	}
	return nil
}

func validateTable(name string, w Weights, allowed []string) error {
	total := 0
	for _, e := range w {
		if e.Weight < 0 {
			return fmt.Errorf("%s: negative weight for %q", name, e.Key)
		}
		if allowed != nil && !contains(allowed, e.Key) {
			return fmt.Errorf("%s: unknown entry %q", name, e.Key)
		}
		total += e.Weight
	}
	if total == 0 {
		return fmt.Errorf("%s: all weights are zero", name)
	}
	return nil
}

// normalize applies mode-dependent overrides and fills the logger.
func (o Options) normalize() Options {
	if o.Mode == "default" {
		o.PBigArray = 0
		o.MaxThreads = 0
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 100
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o Options) validate() (Options, error) {
	o = o.normalize()
	if err := o.Validate(); err != nil {
		return o, err
	}
	return o, nil
}

// userExceptionName and testClassName are the auxiliary classes emitted
// once per program; both carry the main class name as a suffix.
func (o Options) userExceptionName() string { return "UserDefinedException" + o.MainClassName }
func (o Options) testClassName() string     { return "TestClass" + o.MainClassName }

// LoadOptionsFile overlays the YAML document at path onto base. Scalar keys
// replace fields, operator tables replace whole categories and statement
// triples replace single kinds.
func LoadOptionsFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseOptions(data, base)
}

// ParseOptions is LoadOptionsFile over an in-memory document.
func ParseOptions(data []byte, base Options) (Options, error) {
	out := base
	ops := base.Operators
	stmts := base.Statements
	out.Operators = nil
	out.Statements = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && err != io.EOF {
		return base, fmt.Errorf("could not parse configuration file: %w", err)
	}

	merged := make(map[string]Weights, len(ops)+len(out.Operators))
	for k, v := range ops {
		merged[k] = v
	}
	for k, v := range out.Operators {
		merged[k] = v
	}
	out.Operators = merged
	out.Statements = stmts.merge(out.Statements)
	out.Logger = base.Logger
	out.Seed = base.Seed
	return out, nil
}

func isJavaIdent(s string) bool {
	if s == "" || contains(javaKeywords, s) {
		return false
	}
	for i, c := range s {
		letter := c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		digit := c >= '0' && c <= '9'
		if !letter && !(digit && i > 0) {
			return false
		}
	}
	return true
}

var javaKeywords = []string{
	"abstract", "continue", "for", "new", "switch", "assert", "default", "if", "package",
	"synchronized", "boolean", "do", "goto", "private", "this", "break", "double", "implements",
	"protected", "throw", "byte", "else", "import", "public", "throws", "case", "enum",
	"instanceof", "return", "transient", "catch", "extends", "int", "short", "try", "char",
	"final", "interface", "static", "void", "class", "finally", "long", "strictfp", "volatile",
	"const", "float", "native", "super", "while", "Object",
}
