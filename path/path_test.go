package path

import "testing"

func TestValidateBasic(t *testing.T) {
	cases := []struct {
		path    string
		wantErr bool
	}{
		{"", true},
		{"no-leading-slash", true},
		{"/", false},
		{"/a", false},
		{"/a/", true},
		{"/a/b", false},
	}
	for _, c := range cases {
		err := Validate(c.path, Basic)
		if (err != nil) != c.wantErr {
			t.Fatalf("Validate(%q, Basic) err=%v, wantErr=%v", c.path, err, c.wantErr)
		}
	}
}

func TestValidateFull(t *testing.T) {
	cases := []struct {
		path    string
		wantErr bool
	}{
		{"/a/b", false},
		{"/a//b", true},
		{"/a/./b", true},
		{"/a/../b", true},
		{"/", false},
	}
	for _, c := range cases {
		err := Validate(c.path, Full)
		if (err != nil) != c.wantErr {
			t.Fatalf("Validate(%q, Full) err=%v, wantErr=%v", c.path, err, c.wantErr)
		}
	}
}

func TestValidateNone(t *testing.T) {
	if err := Validate("", None); err != nil {
		t.Fatalf("None level should never reject: %v", err)
	}
}

func TestComponents(t *testing.T) {
	got := Components("/a/b/c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Components = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Components[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIteratorRoot(t *testing.T) {
	it := NewIterator("/")
	if !it.AtEnd() {
		t.Fatalf("root path should have no components, got %q", it.Component())
	}
}

func TestIsGlob(t *testing.T) {
	cases := map[string]bool{
		"/a/b":      false,
		"/a/*":      true,
		"/a/?":      true,
		"/a/[abc]":  true,
		"/a/\\*":    false,
		"/a/\\*/b":  false,
	}
	for p, want := range cases {
		if got := IsGlob(p); got != want {
			t.Fatalf("IsGlob(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestMatchNamesLiteral(t *testing.T) {
	if !MatchNames("foo", "foo") {
		t.Fatal("literal should match itself")
	}
	if MatchNames("foo", "bar") {
		t.Fatal("literal should not match a different literal")
	}
}

func TestMatchNamesStar(t *testing.T) {
	if !MatchNames("*", "") {
		t.Fatal("* should match empty span")
	}
	if !MatchNames("*", "anything") {
		t.Fatal("* should match any span")
	}
	if !MatchNames("a*b", "ab") {
		t.Fatal("a*b should match ab (empty span)")
	}
	if !MatchNames("a*b", "axxxb") {
		t.Fatal("a*b should match axxxb")
	}
}

func TestMatchNamesQuestion(t *testing.T) {
	if !MatchNames("a?c", "abc") {
		t.Fatal("? should match exactly one char")
	}
	if MatchNames("a?c", "ac") {
		t.Fatal("? should not match zero chars")
	}
}

func TestMatchNamesClass(t *testing.T) {
	if !MatchNames("[abc]", "a") || !MatchNames("[abc]", "b") || !MatchNames("[abc]", "c") {
		t.Fatal("[abc] should match a, b, or c")
	}
	if MatchNames("[abc]", "d") {
		t.Fatal("[abc] should not match d")
	}
	if !MatchNames("[!abc]", "d") {
		t.Fatal("[!abc] should match d")
	}
	if MatchNames("[!abc]", "a") {
		t.Fatal("[!abc] should not match a")
	}
	if !MatchNames("[a-z]", "m") {
		t.Fatal("[a-z] should match m")
	}
	if MatchNames("[a-z]", "M") {
		t.Fatal("[a-z] should not match M")
	}
}

func TestMatchNamesEscape(t *testing.T) {
	if !MatchNames("\\*", "*") {
		t.Fatal("\\* should match a literal *")
	}
	if MatchNames("\\*", "a") {
		t.Fatal("\\* should only match a literal *")
	}
}

func TestMatchPaths(t *testing.T) {
	if !MatchPaths("/a/b/c", "/a/b/c") {
		t.Fatal("identical concrete paths should match")
	}
	if !MatchPaths("/a/*/c", "/a/xyz/c") {
		t.Fatal("glob component should match")
	}
	if MatchPaths("/a/b", "/a/b/c") {
		t.Fatal("mismatched component counts should not match")
	}
	if MatchPaths("/a/b/c", "/a/b") {
		t.Fatal("mismatched component counts should not match (reverse)")
	}
}
