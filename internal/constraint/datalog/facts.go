// Package datalog encodes a constraint store as a set of Prolog-style
// facts plus a fixed rule file, and hands both to an external Datalog
// evaluator (spec component E). The package never runs an evaluator
// itself; callers supply one satisfying the Evaluator interface, which in
// production is an XSB (or compatible) subprocess.
package datalog

import (
	"fmt"
	"sort"
	"strings"
)

// Fact is one ground Prolog fact: Predicate(Args...).
type Fact struct {
	Predicate string
	Args      []string
}

func (f Fact) String() string {
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(f.Args, ", "))
}

// sortFacts orders facts for a deterministic, diffable program file.
func sortFacts(facts []Fact) []Fact {
	out := append([]Fact(nil), facts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Predicate != out[j].Predicate {
			return out[i].Predicate < out[j].Predicate
		}
		return strings.Join(out[i].Args, ",") < strings.Join(out[j].Args, ",")
	})
	return out
}

// ruleHeader is the static rule file prepended to every generated program.
// It derives subtype/2 recursively from the structural facts the encoder
// emits: reflexivity and the object/nothing extremes, transitivity,
// nominal+structural instance subtyping, contravariant/covariant function
// subtyping, and union distribution.
const ruleHeader = `
subtype(X, X) :- repr(X, _).
subtype(X, Y) :- nothing(X), repr(Y, _).
subtype(X, Y) :- object(Y), repr(X, _).

subtype(X, Z) :- subtype(X, Y), subtype(Y, Z), X \= Y, Y \= Z.

% Instance X <: Instance Y when Y's linearization is a subsequence of X's
% (mro_index encodes position) and every attribute Y names is present and
% covariant on X.
instance_nominal(X, Y) :-
    instance(X, _, _), instance(Y, _, _),
    \+ (mro(Y, IY, CY), \+ (mro(X, IX, CY), IX >= IY)).

instance_structural(X, Y) :-
    instance(X, _, _), instance(Y, _, _),
    \+ (instance(Y, Attr, VY), \+ (instance(X, Attr, VX), subtype(VX, VY))).

subtype(X, Y) :-
    instance(X, _, _), instance(Y, _, _),
    instance_nominal(X, Y), instance_structural(X, Y).

% Function X <: Function Y: contravariant args, covariant return, equal
% arity (checked by tuple_len on both argument tuples).
subtype(X, Y) :-
    function(X, ArgsX, RetX), function(Y, ArgsY, RetY),
    tuple_len(ArgsX, N), tuple_len(ArgsY, N),
    \+ (tuple(ArgsY, I, AY), \+ (tuple(ArgsX, I, AX), subtype(AY, AX))),
    subtype(RetX, RetY).

tuple_len(T, N) :- findall(I, tuple(T, I, _), L), length(L, N).

% Union on the left: every member must be a subtype of Y.
subtype(X, Y) :-
    union(X, _, _),
    \+ (union(X, _, M), \+ subtype(M, Y)).

% Union on the right: X must be a subtype of at least one member.
subtype(X, Y) :-
    union(Y, _, _),
    union(Y, _, M),
    subtype(X, M).
`

// WriteRuleHeader returns the static rule program text, exported so callers
// can inspect or cache it independently of any particular Encoder run.
func WriteRuleHeader() string {
	return ruleHeader
}
