package pathmatch

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a.png", "a.png"},
		{"./img/a.png", "img/a.png"},
		{"/img/a.png", "img/a.png"},
		{"img//b/../a.png", "img/a.png"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.svg", "a.svg", true},
		{"*.svg", "icons/a.svg", true},
		{"*.svg", "a.png", false},
		{"**/*", "a.svg", true},
		{"**/*", "deep/nested/file.js", true},
		{"img/*.png", "img/a.png", true},
		{"img/*.png", "img/sub/a.png", false},
		{"img/**/*.png", "img/sub/a.png", true},
		{"**/*.{png,jpg}", "x/y.jpg", true},
		{"**/*.{png,jpg}", "x/y.gif", false},
		{"photo[0-9].jpg", "photo7.jpg", true},
		{"photo[0-9].jpg", "photox.jpg", false},
		{"./img/*.png", "./img/a.png", true},
	}
	for _, tt := range tests {
		got, err := Match(tt.pattern, tt.path)
		if err != nil {
			t.Fatalf("Match(%q, %q) error: %v", tt.pattern, tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	for _, p := range []string{"*.png", "**/*", "a/{b,c}/*.js", "[abc].txt"} {
		if err := Validate(p); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", p, err)
		}
	}
	for _, p := range []string{"", "  ", "src/{a,b", "[abc"} {
		if err := Validate(p); err == nil {
			t.Errorf("Validate(%q) = nil, want error", p)
		}
	}
}

func TestMustMatch(t *testing.T) {
	if !MustMatch("*.css", "styles/site.css") {
		t.Error("MustMatch should match base name")
	}
	if MustMatch("src/{a,b", "src/a") {
		t.Error("MustMatch should be false for a malformed pattern")
	}
}
