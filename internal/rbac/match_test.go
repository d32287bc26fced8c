package rbac

import "testing"

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"articles.edit", "articles.edit", true},
		{"articles.edit", "articles.view", false},
		{"articles.edit", "Articles.Edit", false},
		{"articles.*", "articles.edit", true},
		{"articles.*", "articles.", true},
		{"articles.*", "article.edit", false},
		{"*", "anything", true},
		{"*", "", true},
		{"*.view", "articles.view", true},
		{"*.view", "view", false},
		{"a*c*e", "abcde", true},
		{"a*c*e", "ace", true},
		{"a*c*e", "abde", false},
		{"a*a", "a", false},
		{"a*a", "aa", true},
		{"ab*ab", "abab", true},
		{"", "", true},
		{"", "x", false},
	}
	for _, tc := range cases {
		if got := MatchPattern(tc.pattern, tc.name); got != tc.want {
			t.Fatalf("MatchPattern(%q, %q) = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}

func TestResolvePermissionID(t *testing.T) {
	id, err := ResolvePermissionID(ByID(42))
	if err != nil || id != 42 {
		t.Fatalf("ByID(42) resolved to (%d, %v)", id, err)
	}

	id, err = ResolvePermissionID(ByRecord(Permission{ID: 7, Name: "roles.view"}))
	if err != nil || id != 7 {
		t.Fatalf("ByRecord resolved to (%d, %v)", id, err)
	}

	if _, err := ResolvePermissionID(PermissionRef{}); err != ErrInvalidPermissionRef {
		t.Fatalf("zero ref resolved with err %v, want ErrInvalidPermissionRef", err)
	}
	if _, err := ResolvePermissionID(ByID(0)); err != ErrInvalidPermissionRef {
		t.Fatalf("ByID(0) resolved with err %v, want ErrInvalidPermissionRef", err)
	}
	if _, err := ResolvePermissionID(ByRecord(Permission{Name: "no-id"})); err != ErrInvalidPermissionRef {
		t.Fatalf("record without ID resolved with err %v, want ErrInvalidPermissionRef", err)
	}
}
