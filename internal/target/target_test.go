package target

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	tgt, err := Validate("x86_64-unknown-linux-gnu")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if tgt.Arch != "x86_64" {
		t.Fatalf("Arch = %q, want x86_64", tgt.Arch)
	}
	if tgt.Vendor != "unknown" {
		t.Fatalf("Vendor = %q, want unknown", tgt.Vendor)
	}
	if tgt.OS != "linux" {
		t.Fatalf("OS = %q, want linux", tgt.OS)
	}
	if tgt.ABI != "gnu" {
		t.Fatalf("ABI = %q, want gnu", tgt.ABI)
	}
}

func TestValidateDeterministic(t *testing.T) {
	for _, triple := range Supported() {
		first, err := Validate(triple)
		if err != nil {
			t.Fatalf("Validate(%q) returned error: %v", triple, err)
		}
		second, err := Validate(triple)
		if err != nil {
			t.Fatalf("Validate(%q) returned error on second call: %v", triple, err)
		}
		if first != second {
			t.Fatalf("Validate(%q) not deterministic: %+v vs %+v", triple, first, second)
		}
		if !reflect.DeepEqual(first.Rustflags(), second.Rustflags()) {
			t.Fatalf("Rustflags for %q not deterministic", triple)
		}
	}
}

func TestValidateUnsupported(t *testing.T) {
	for _, triple := range []string{
		"bogus-arch",
		"x86_64-pc-windows-msvc",
		"wasm32-unknown-unknown",
		"",
		"x86_64-unknown-linux",
	} {
		_, err := Validate(triple)
		if !errors.Is(err, ErrUnsupportedTarget) {
			t.Fatalf("Validate(%q) error = %v, want ErrUnsupportedTarget", triple, err)
		}
	}
}

func TestMuslTargetsAreStatic(t *testing.T) {
	for _, triple := range []string{"x86_64-unknown-linux-musl", "aarch64-unknown-linux-musl"} {
		tgt, err := Validate(triple)
		if err != nil {
			t.Fatalf("Validate(%q) returned error: %v", triple, err)
		}
		flags := tgt.Rustflags()
		want := []string{"-C", "target-feature=+crt-static"}
		if !reflect.DeepEqual(flags, want) {
			t.Fatalf("Rustflags(%q) = %v, want %v", triple, flags, want)
		}
	}
}

func TestGnuTargetsHaveNoExtraFlags(t *testing.T) {
	tgt, err := Validate("aarch64-unknown-linux-gnu")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if flags := tgt.Rustflags(); len(flags) != 0 {
		t.Fatalf("Rustflags = %v, want none", flags)
	}
}

func TestLambdaArch(t *testing.T) {
	cases := map[string]string{
		"x86_64-unknown-linux-gnu":   "x86_64",
		"x86_64-unknown-linux-musl":  "x86_64",
		"aarch64-unknown-linux-gnu":  "arm64",
		"aarch64-unknown-linux-musl": "arm64",
	}
	for triple, want := range cases {
		tgt, err := Validate(triple)
		if err != nil {
			t.Fatalf("Validate(%q) returned error: %v", triple, err)
		}
		if got := tgt.LambdaArch(); got != want {
			t.Fatalf("LambdaArch(%q) = %q, want %q", triple, got, want)
		}
	}
}

func TestOCIPlatform(t *testing.T) {
	tgt, err := Validate("aarch64-unknown-linux-musl")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if got := tgt.OCIPlatform(); got != "linux/arm64" {
		t.Fatalf("OCIPlatform = %q, want linux/arm64", got)
	}
}

func TestSupportedSorted(t *testing.T) {
	triples := Supported()
	if len(triples) == 0 {
		t.Fatal("Supported returned no triples")
	}
	for i := 1; i < len(triples); i++ {
		if triples[i-1] >= triples[i] {
			t.Fatalf("Supported not sorted: %q before %q", triples[i-1], triples[i])
		}
	}
}
