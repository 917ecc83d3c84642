package compile

import (
	"bytes"
	"reflect"
	"sync"
	"testing"
)

func TestDiagnosticsOrder(t *testing.T) {
	d := NewDiagnostics(nil)
	d.Append("warning: unused variable")
	d.Append("error[E0308]: mismatched types")
	d.Append("error: aborting due to previous error")

	want := []string{
		"warning: unused variable",
		"error[E0308]: mismatched types",
		"error: aborting due to previous error",
	}
	if got := d.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines = %v, want %v", got, want)
	}
	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}
}

func TestDiagnosticsMirror(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnostics(&buf)
	d.Append("compiling foo v0.1.0")

	if got := buf.String(); got != "compiling foo v0.1.0\n" {
		t.Fatalf("mirrored output = %q, want %q", got, "compiling foo v0.1.0\n")
	}
}

func TestDiagnosticsConcurrentAppend(t *testing.T) {
	d := NewDiagnostics(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Append("line")
			}
		}()
	}
	wg.Wait()

	if d.Len() != 800 {
		t.Fatalf("Len = %d, want 800", d.Len())
	}
}

func TestDiagnosticsLinesCopy(t *testing.T) {
	d := NewDiagnostics(nil)
	d.Append("first")

	lines := d.Lines()
	lines[0] = "mutated"

	if got := d.Lines()[0]; got != "first" {
		t.Fatalf("Lines()[0] = %q, want %q", got, "first")
	}
}

func TestWriterSplitsLines(t *testing.T) {
	d := NewDiagnostics(nil)
	w := d.Writer()

	w.Write([]byte("first li"))
	w.Write([]byte("ne\nsecond line\npart"))
	w.Write([]byte("ial"))
	w.Close()

	want := []string{"first line", "second line", "partial"}
	if got := d.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines = %v, want %v", got, want)
	}
}

func TestWriterCRLF(t *testing.T) {
	d := NewDiagnostics(nil)
	w := d.Writer()

	w.Write([]byte("windows line\r\n"))
	w.Close()

	if got := d.Lines()[0]; got != "windows line" {
		t.Fatalf("line = %q, want %q", got, "windows line")
	}
}

func TestWriterCloseWithoutTrailingLine(t *testing.T) {
	d := NewDiagnostics(nil)
	w := d.Writer()

	w.Write([]byte("complete\n"))
	w.Close()

	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1", d.Len())
	}
}
