package party

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Label is one of the closed set of party names the map understands.
type Label string

const (
	Liberal       Label = "Liberal"
	Conservative  Label = "Conservative"
	NDP           Label = "NDP"
	BlocQuebecois Label = "Bloc Québécois"
	Green         Label = "Green"
	PPC           Label = "PPC"
	Independent   Label = "Independent"
)

// Rule maps any of its substrings to a label.
type Rule struct {
	Label    Label
	Contains []string
}

// Table is tested in order; the first rule with a matching substring wins.
// Anything that matches nothing is Independent.
var Table = []Rule{
	{Label: Liberal, Contains: []string{"Liberal"}},
	{Label: Conservative, Contains: []string{"Conservative"}},
	{Label: NDP, Contains: []string{"NDP"}},
	{Label: BlocQuebecois, Contains: []string{"Bloc"}},
	{Label: Green, Contains: []string{"Green"}},
	{Label: PPC, Contains: []string{"PPC", "People"}},
}

// Phrases classifies the riding summary's candidate column, where the party
// trails a free-text name. Only whole party names count, so a surname such as
// Greenwood or Block is never read as a party.
var Phrases = []Rule{
	{Label: Liberal, Contains: []string{"Liberal"}},
	{Label: Conservative, Contains: []string{"Conservative"}},
	{Label: NDP, Contains: []string{"NDP-New Democratic Party"}},
	{Label: BlocQuebecois, Contains: []string{"Bloc Québécois"}},
	{Label: Green, Contains: []string{"Green Party"}},
	{Label: PPC, Contains: []string{"People's Party", "PPC"}},
}

// All lists every label, Independent last.
var All = []Label{Liberal, Conservative, NDP, BlocQuebecois, Green, PPC, Independent}

// Normalize classifies a raw bilingual affiliation string such as
// "Liberal/Libéral" or "NDP-New Democratic Party/NPD-Nouveau Parti démocratique".
func Normalize(affiliation string) Label {
	return Classify(Table, affiliation)
}

// Classify returns the label of the first rule in rules with a substring of s,
// or Independent.
func Classify(rules []Rule, s string) Label {
	s = norm.NFC.String(s)
	for _, r := range rules {
		for _, sub := range r.Contains {
			if strings.Contains(s, sub) {
				return r.Label
			}
		}
	}
	return Independent
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	for _, k := range All {
		if k == l {
			return true
		}
	}
	return false
}
