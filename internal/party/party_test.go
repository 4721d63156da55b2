package party

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Label
	}{
		{"Liberal/Libéral", Liberal},
		{"Conservative/Conservateur", Conservative},
		{"NDP-New Democratic Party/NPD-Nouveau Parti démocratique", NDP},
		{"Bloc Québécois/Bloc Québécois", BlocQuebecois},
		{"Green Party/Parti Vert", Green},
		{"People's Party - PPC/Parti populaire - PPC", PPC},
		{"People's Party/Parti populaire", PPC},
		{"Independent/Indépendant(e)", Independent},
		{"Rhinoceros/Rhinocéros", Independent},
		{"Libertarian/Libertarien", Independent},
		{"", Independent},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_PriorityOrder(t *testing.T) {
	// Liberal is tested before Conservative.
	if got := Normalize("Liberal Conservative Coalition"); got != Liberal {
		t.Errorf("got %q, want Liberal", got)
	}
	if got := Normalize("Green NDP"); got != NDP {
		t.Errorf("got %q, want NDP", got)
	}
}

func TestNormalize_DecomposedAccents(t *testing.T) {
	// "Bloc Québécois" uses combining accents.
	if got := Normalize("Bloc Québécois"); got != BlocQuebecois {
		t.Errorf("got %q", got)
	}
}

func TestNormalize_AlwaysValid(t *testing.T) {
	for _, in := range []string{"x", "LIBERAL", "Parti Vert", "ppc"} {
		if l := Normalize(in); !l.Valid() {
			t.Errorf("Normalize(%q) returned out-of-set label %q", in, l)
		}
	}
}

func TestClassify_PhrasesNeedWholePartyNames(t *testing.T) {
	cases := []struct {
		in   string
		want Label
	}{
		{"People's Party - PPC/Parti populaire du Canada", PPC},
		{"Green Party/Parti Vert", Green},
		{"Bloc Québécois/Bloc Québécois", BlocQuebecois},
		{"NDP-New Democratic Party/NPD-Nouveau Parti démocratique", NDP},
		{"Independent/Indépendant(e)", Independent},
		{"Greenwood", Independent},
		{"Block", Independent},
		{"", Independent},
	}
	for _, c := range cases {
		if got := Classify(Phrases, c.in); got != c.want {
			t.Errorf("Classify(Phrases, %q) = %q, want %q", c.in, got, c.want)
		}
	}
}
