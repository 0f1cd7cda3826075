package mdos

import (
	"bytes"
	"testing"
)

func TestDecodeASCII_SpaceRunAndNewlines(t *testing.T) {
	raw := []byte{'H', 'I', 0x80 | 3, 'A', 0x0D, 'B', 0x0A, 0x00, 'C'}

	got := DecodeASCII(raw)
	want := []byte("HI   A\nBC")

	if bytes.Equal(got, want) == false {
		t.Fatalf("expected (%q), got (%q)", want, got)
	}
}

func TestDecodeASCII_DropsControlBytesKeepsTab(t *testing.T) {
	raw := []byte{0x09, 0x01, 'X'}

	got := DecodeASCII(raw)
	want := []byte{0x09, 'X'}

	if bytes.Equal(got, want) == false {
		t.Fatalf("expected (%v), got (%v)", want, got)
	}
}

func TestDecodeASCII_DropsDEL(t *testing.T) {
	raw := []byte{'X', 0x7F, 'Y'}

	got := DecodeASCII(raw)
	want := []byte{'X', 'Y'}

	if bytes.Equal(got, want) == false {
		t.Fatalf("expected (%v), got (%v)", want, got)
	}
}

func TestEncodeASCII_CollapsesSpaceRuns(t *testing.T) {
	text := []byte("A   B\n")

	got := EncodeASCII(text)

	if got[0] != 'A' {
		t.Fatalf("expected leading literal 'A'")
	}
	if got[1] != 0x80|3 {
		t.Fatalf("expected a 3-space run byte, got (%#x)", got[1])
	}
	if got[2] != 'B' {
		t.Fatalf("expected literal 'B' after the run")
	}
	if got[3] != 0x0D {
		t.Fatalf("expected LF to become CR")
	}
}

func TestEncodeASCII_SingleSpaceStaysLiteral(t *testing.T) {
	text := []byte("A B")

	got := EncodeASCII(text)
	want := []byte("A B")

	if bytes.Equal(got, want) == false {
		t.Fatalf("expected (%q), got (%q)", want, got)
	}
}

func TestEncodeASCII_LongRunSplitsAt127(t *testing.T) {
	text := bytes.Repeat([]byte(" "), 200)

	got := EncodeASCII(text)

	if len(got) != 2 {
		t.Fatalf("expected two run bytes for 200 spaces, got (%d)", len(got))
	}
	if got[0] != 0x80|127 {
		t.Fatalf("expected first run byte to max out at 127, got (%#x)", got[0])
	}
	if got[1] != 0x80|73 {
		t.Fatalf("expected second run byte to carry the remaining 73, got (%#x)", got[1])
	}
}

func TestASCII_EachInputByteConsumedOnce(t *testing.T) {
	raw := []byte{0x80 | 5, 0x0A, 0x00, 'Z'}

	consumed := consumeForDecodedCount(raw, len(DecodeASCII(raw)))
	if consumed != len(raw) {
		t.Fatalf("expected every input byte consumed, got (%d) of (%d)", consumed, len(raw))
	}
}
