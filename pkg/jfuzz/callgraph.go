package jfuzz

// callGraph keeps, for every method, the transitive set of its callers.
// Each method is its own caller, which keeps closure updates uniform.
type callGraph struct {
	methods []*Method
	callers [][]int
	member  []map[int]bool
	edges   [][2]int
}

func newCallGraph() *callGraph {
	return &callGraph{}
}

func (g *callGraph) register(m *Method) {
	if m.ID != len(g.methods) {
		fail("callGraph.register", "method %s registered out of order", m.name)
	}
	g.methods = append(g.methods, m)
	g.callers = append(g.callers, []int{m.ID})
	g.member = append(g.member, map[int]bool{m.ID: true})
}

// isCaller reports whether a calls b, directly or not. Every method is
// considered a caller of itself.
func (g *callGraph) isCaller(a, b *Method) bool {
	if a == nil || b == nil {
		return false
	}
	return g.member[b.ID][a.ID]
}

// add records caller -> callee and extends the closure: every method that
// reaches callee now also has every caller of caller among its callers.
func (g *callGraph) add(caller, callee *Method) {
	if caller == callee {
		fail("callGraph.add", "%s would call itself", caller.qualified())
	}
	if g.isCaller(callee, caller) {
		fail("callGraph.add", "trying to cycle a call chain: callee %s is already a caller of caller %s",
			callee.qualified(), caller.qualified())
	}
	g.edges = append(g.edges, [2]int{caller.ID, callee.ID})
	up := g.callers[caller.ID]
	for t := range g.methods {
		if !g.member[t][callee.ID] {
			continue
		}
		for _, c := range up {
			if !g.member[t][c] {
				g.member[t][c] = true
				g.callers[t] = append(g.callers[t], c)
			}
		}
	}
}

// depth is the longest caller chain ending at m, counted in calls.
// Constructor invocations count like any other call.
func (g *callGraph) depth(m *Method) int {
	memo := make([]int, len(g.methods))
	for i := range memo {
		memo[i] = -1
	}
	return g.depthOf(m.ID, memo)
}

func (g *callGraph) depthOf(id int, memo []int) int {
	if memo[id] >= 0 {
		return memo[id]
	}
	best := 0
	if len(g.callers[id]) > 1 {
		for _, c := range g.callers[id] {
			if c == id {
				continue
			}
			if d := g.depthOf(c, memo) + 1; d > best {
				best = d
			}
		}
	}
	memo[id] = best
	return best
}

// height is the longest callee chain starting at m.
func (g *callGraph) height(m *Method) int {
	memo := make([]int, len(g.methods))
	for i := range memo {
		memo[i] = -1
	}
	return g.heightOf(m.ID, memo)
}

func (g *callGraph) heightOf(id int, memo []int) int {
	if memo[id] >= 0 {
		return memo[id]
	}
	best := 0
	for t := range g.methods {
		if t == id || !g.member[t][id] {
			continue
		}
		if h := g.heightOf(t, memo) + 1; h > best {
			best = h
		}
	}
	memo[id] = best
	return best
}

func (g *callGraph) maxDepth() int {
	memo := make([]int, len(g.methods))
	for i := range memo {
		memo[i] = -1
	}
	best := 0
	for id := range g.methods {
		if d := g.depthOf(id, memo); d > best {
			best = d
		}
	}
	return best
}

func (g *callGraph) clone() *callGraph {
	c := &callGraph{
		methods: g.methods,
		callers: make([][]int, len(g.callers)),
		member:  make([]map[int]bool, len(g.member)),
	}
	for i := range g.callers {
		c.callers[i] = append([]int(nil), g.callers[i]...)
		c.member[i] = make(map[int]bool, len(g.member[i]))
		for k := range g.member[i] {
			c.member[i][k] = true
		}
	}
	return c
}

// canAdd tries the edge on a copy of the graph. The edge is acceptable when
// it closes no cycle and the deepest chain stays within limit.
func (g *callGraph) canAdd(caller, callee *Method, limit int) bool {
	if caller == callee || g.isCaller(callee, caller) {
		return false
	}
	if g.isCaller(caller, callee) {
		return true
	}
	c := g.clone()
	c.add(caller, callee)
	return c.maxDepth() <= limit
}
