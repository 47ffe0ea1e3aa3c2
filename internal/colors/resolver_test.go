package colors

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Black", "1a1a1a"},
		{"  white  ", "ffffff"},
		{"Matte Black", "1a1a1a"},
		{"Jade White", "ffffff"},
		{"negro", "1a1a1a"},
		{"Gris Oscuro", "7f8c8d"},
		{"púrpura", "9b59b6"},
		{"purpura", "9b59b6"},
		{"marrón", "8b4513"},
		{"Grey", "7f8c8d"},
		{"Bambu Green", "2ecc71"},
	}
	for _, c := range cases {
		if got := Resolve(c.in); got != c.want {
			t.Fatalf("Resolve(%q)=%s want %s", c.in, got, c.want)
		}
	}
}

func TestResolveFallback(t *testing.T) {
	for _, in := range []string{"", "Galaxy Nebula", "???"} {
		if got := Resolve(in); got != FallbackHex {
			t.Fatalf("Resolve(%q)=%s want fallback", in, got)
		}
	}
}

func TestResolveSubstringOrder(t *testing.T) {
	// "blackish-blue" contains both black and blue; table order wins.
	if got := Resolve("blackish-blue"); got != "1a1a1a" {
		t.Fatalf("got %s", got)
	}
}
