package resolver

import (
	"udonsharp/internal/types"
)

// Conversion costs used to rank overloads; lower is better.
const (
	scoreExact        = 0
	scoreReference    = 1
	scoreWidening     = 2
	scoreUserImplicit = 3
	scoreObjectLoose  = 4
	noMatch           = -1
)

// Match is the winning overload together with how the arguments bind.
type Match struct {
	Method *types.Method
	// Expanded is set when trailing arguments are packed into a params array.
	Expanded bool
	// Defaults counts trailing parameters filled from their default values.
	Defaults int
	Score    int

	index int
}

// FindBestOverload ranks methods against argument types. Ties break towards
// the unexpanded form, then fewer defaults, then the more derived declaring
// type, then declaration order, so the result never depends on map order.
func (r *Context) FindBestOverload(methods []*types.Method, args []*types.Type, requireExposed bool) (Match, bool) {
	var best Match
	found := false
	for i, m := range methods {
		if requireExposed && !r.IsExposed(m) {
			continue
		}
		for _, cand := range r.bindings(m, args) {
			cand.index = i
			if !found || better(cand, best) {
				best, found = cand, true
			}
		}
	}
	return best, found
}

func better(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.Expanded != b.Expanded {
		return !a.Expanded
	}
	if a.Defaults != b.Defaults {
		return a.Defaults < b.Defaults
	}
	da, db := a.Method.Declaring.Depth(), b.Method.Declaring.Depth()
	if da != db {
		return da > db
	}
	return a.index < b.index
}

// bindings returns every way args can bind to m: the normal form and, for a
// params method, the expanded form.
func (r *Context) bindings(m *types.Method, args []*types.Type) []Match {
	var out []Match
	params := m.Params
	if len(args) <= len(params) {
		score, ok := 0, true
		for i, a := range args {
			s := r.argScore(params[i].Type, a)
			if s == noMatch {
				ok = false
				break
			}
			score += s
		}
		defaults := 0
		for _, p := range params[len(args):] {
			if !p.HasDefault {
				ok = false
				break
			}
			defaults++
		}
		if ok {
			out = append(out, Match{Method: m, Score: score, Defaults: defaults})
		}
	}
	if m.HasVariadic() && len(args) >= len(params)-1 {
		fixed := len(params) - 1
		elem := params[fixed].Type.Elem
		score, ok := 0, true
		for i, a := range args {
			want := elem
			if i < fixed {
				want = params[i].Type
			}
			s := r.argScore(want, a)
			if s == noMatch {
				ok = false
				break
			}
			score += s
		}
		if ok {
			out = append(out, Match{Method: m, Score: score, Expanded: true})
		}
	}
	return out
}

func (r *Context) argScore(param, arg *types.Type) int {
	if arg == nil || param == nil {
		return noMatch
	}
	if param.IsByRef() {
		param = param.Elem
	}
	switch {
	case arg == param:
		return scoreExact
	case param.IsGenericParam():
		return scoreReference
	case param.IsAssignableFrom(arg):
		return scoreReference
	case types.IsNumericWidening(arg, param):
		return scoreWidening
	case r.FindUserConversion(arg, param, false) != nil:
		return scoreUserImplicit
	case arg.IsObject() && !param.IsValueType():
		return scoreObjectLoose
	case arg.IsBehaviourLike() && param.IsAssignableFrom(r.UdonType(arg)):
		return scoreReference
	}
	return noMatch
}
