package glob

import "testing"

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{"src/**", "src/dir/nested.py", true},
		{"src/*", "src/app.py", true},
		{"src/*", "src/dir/nested.py", false},
		{"src/app.py", "src/app.py", true},
		{"docs/**", "src/app.py", false},
		{"**/*.go", "internal/glob/matcher.go", true},
		{`src\app.py`, "src/app.py", true}, // backslash separators normalized
	}
	for _, tt := range tests {
		if got := MatchPath(tt.pattern, tt.path); got != tt.want {
			t.Errorf("MatchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"src/**", "src/dir/nested.py", true},
		{"docs/**", "src/**", false},
		{"src/app.py", "src/app.py", true},
		{"src/*.py", "src/app.py", true},
		{"src/[a-c]*.py", "src/[b-d]*.py", true}, // only the NFA sees this one
		{"src/[a-c].py", "src/[x-z].py", false},
		{"src/**", "docs/readme.md", false},
		{"**", "anything/at/all.txt", true},
		{`src\**`, "src/app.py", true}, // backslash separators normalized
	}
	for _, tt := range tests {
		got, err := Overlap(tt.a, tt.b)
		if err != nil {
			t.Errorf("Overlap(%q, %q) error: %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Overlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCacheReturnsStableResults(t *testing.T) {
	c := NewCache()
	for i := 0; i < 3; i++ {
		got, err := c.Overlap("src/**", "src/app.py")
		if err != nil {
			t.Fatalf("cache overlap: %v", err)
		}
		if !got {
			t.Fatal("expected overlap on every call")
		}
	}
	// Order of arguments must not matter.
	got, err := c.Overlap("src/app.py", "src/**")
	if err != nil || !got {
		t.Fatalf("reversed lookup = %v, %v", got, err)
	}
}
