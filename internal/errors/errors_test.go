package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		wantMsg   string
		wantCat   Category
		wantFatal bool
	}{
		{
			name:      "config error",
			code:      "B102",
			wantMsg:   "Invalid override pattern",
			wantCat:   CategoryConfig,
			wantFatal: true,
		},
		{
			name:      "codec error is recoverable",
			code:      "B301",
			wantMsg:   "Image encode failed",
			wantCat:   CategoryCodec,
			wantFatal: false,
		},
		{
			name:      "cache error",
			code:      "B200",
			wantMsg:   "Cache directory unusable",
			wantCat:   CategoryCache,
			wantFatal: true,
		},
		{
			name:      "unknown error code",
			code:      "B999",
			wantMsg:   "Unknown error",
			wantCat:   "",
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Fatal != tt.wantFatal {
				t.Errorf("Fatal = %v, want %v", err.Fatal, tt.wantFatal)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryPipeline, "file %q not found", "a.png")
	if err.Message != `file "a.png" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `file "a.png" not found`)
	}
	if err.Category != CategoryPipeline {
		t.Errorf("Category = %q, want %q", err.Category, CategoryPipeline)
	}
}

func TestBundleError_Error(t *testing.T) {
	err := New("B300")
	if got, want := err.Error(), "B300: Image decode failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = New("B300").WithPath("img/a.png").Wrap(fmt.Errorf("bad header"))
	if got, want := err.Error(), "B300: Image decode failed (img/a.png): bad header"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &BundleError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestBundleError_WithLocation(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "vbundle.json")
	content := `{
  "overrides": [
    {
      "pattern": "src/{a,b",
      "settings": {}
    }
  ]
}
`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("B102").WithLocation(tmpFile, 4, 18)

	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.Line != 4 || err.Location.Column != 18 {
		t.Errorf("Location = %d:%d, want 4:18", err.Location.Line, err.Location.Column)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}
}

func TestBundleError_WithOffset(t *testing.T) {
	data := []byte("{\n  \"name\": ,\n}")

	var v map[string]any
	jerr := json.Unmarshal(data, &v)
	var syntaxErr *json.SyntaxError
	if !stderrors.As(jerr, &syntaxErr) {
		t.Fatalf("expected syntax error, got %v", jerr)
	}

	err := New("B101").WithOffset("vbundle.json", data, syntaxErr.Offset)
	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.Line != 2 {
		t.Errorf("Location.Line = %d, want 2", err.Location.Line)
	}
}

func TestBundleError_Wrap(t *testing.T) {
	inner := stderrors.New("disk full")
	outer := New("B201").Wrap(inner)

	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "B400") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	be := New("B400")
	if FromError(be, "B401") != be {
		t.Error("FromError should return BundleError as-is")
	}

	wrapped := fmt.Errorf("context: %w", be)
	if FromError(wrapped, "B401") != be {
		t.Error("FromError should unwrap to the BundleError")
	}

	stdErr := stderrors.New("boom")
	result := FromError(stdErr, "B401")
	if result.Wrapped != stdErr {
		t.Error("Standard error should be wrapped")
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
	if !IsFatal(New("B400")) {
		t.Error("B400 should be fatal")
	}
	if IsFatal(New("B301")) {
		t.Error("B301 should not be fatal")
	}
	if IsFatal(fmt.Errorf("warn: %w", New("B105"))) {
		t.Error("wrapped B105 should not be fatal")
	}
	if !IsFatal(stderrors.New("plain")) {
		t.Error("plain errors should be fatal")
	}
}

func TestHasCode(t *testing.T) {
	err := New("B401").Wrap(New("B200"))
	if !HasCode(err, "B401") || !HasCode(err, "B200") {
		t.Error("HasCode should find both codes in the chain")
	}
	if HasCode(err, "B300") {
		t.Error("HasCode should not find B300")
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{name: "nil location", loc: nil, want: ""},
		{name: "with column", loc: &Location{File: "vbundle.json", Line: 10, Column: 5}, want: "vbundle.json:10:5"},
		{name: "without column", loc: &Location{File: "vbundle.json", Line: 10}, want: "vbundle.json:10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("B301").
		WithPath("img/hero.jpg").
		WithSuggestion("Install cwebp").
		Wrap(stderrors.New("exit status 1"))

	formatted := err.Format()

	for _, want := range []string{"B301", "Image encode failed", "img/hero.jpg", "Cause: exit status 1", "Hint:", "Learn more:"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format should contain %q", want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("B102").WithLocation("vbundle.json", 10, 5)
	want := "vbundle.json:10:5: B102: Invalid override pattern"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("B300").WithPath("a.png")
	out := err.FormatJSON()

	var decoded map[string]any
	if jerr := json.Unmarshal([]byte(out), &decoded); jerr != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", jerr)
	}
	if decoded["code"] != "B300" {
		t.Errorf("code = %v, want B300", decoded["code"])
	}
	if decoded["category"] != "codec" {
		t.Errorf("category = %v, want codec", decoded["category"])
	}
	if decoded["path"] != "a.png" {
		t.Errorf("path = %v, want a.png", decoded["path"])
	}
	if decoded["fatal"] != false {
		t.Errorf("fatal = %v, want false", decoded["fatal"])
	}

	located := New("B101").WithLocation("vbundle.json", 3, 7).Wrap(stderrors.New(`bad "quote"`))
	if jerr := json.Unmarshal([]byte(located.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", jerr)
	}
	if decoded["fatal"] != true || decoded["cause"] != `bad "quote"` {
		t.Errorf("decoded = %v", decoded)
	}
	loc, _ := decoded["location"].(map[string]any)
	if loc["line"] != float64(3) {
		t.Errorf("location = %v", decoded["location"])
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
}

func TestPaint(t *testing.T) {
	EnableColors()
	if !strings.Contains(paint(styleError, "test"), "\033[1;31m") {
		t.Error("paint should add the ANSI style when colors are enabled")
	}

	DisableColors()
	if got := paint(styleError, "test"); got != "test" {
		t.Errorf("paint with colors disabled = %q, want plain text", got)
	}
	EnableColors()
}
