package keystore

import "testing"

func TestSniffJKS(t *testing.T) {
	data := []byte{0xfe, 0xed, 0xfe, 0xed, 0, 0, 0, 0}
	if got := Sniff(data); got != FormatJKS {
		t.Fatalf("Sniff: got %v, want %v", got, FormatJKS)
	}
}

func TestSniffJCEKS(t *testing.T) {
	data := []byte{0xce, 0xce, 0xce, 0xce, 0, 0, 0, 0}
	if got := Sniff(data); got != FormatJCEKS {
		t.Fatalf("Sniff: got %v, want %v", got, FormatJCEKS)
	}
}

func TestSniffPKCS12Default(t *testing.T) {
	data := []byte{0x30, 0x82, 0x0a, 0x00}
	if got := Sniff(data); got != FormatPKCS12 {
		t.Fatalf("Sniff: got %v, want %v", got, FormatPKCS12)
	}
}

func TestLoadRejectsJKS(t *testing.T) {
	data := []byte{0xfe, 0xed, 0xfe, 0xed, 0, 0, 0, 0}
	_, err := Load(data, "password", "")
	if err == nil {
		t.Fatalf("expected error loading a JKS store")
	}
	var unsupported *ErrUnsupportedFormat
	if e, ok := err.(*ErrUnsupportedFormat); !ok {
		t.Fatalf("expected *ErrUnsupportedFormat, got %T", err)
	} else {
		unsupported = e
	}
	if unsupported.Format != FormatJKS {
		t.Fatalf("got format %v, want %v", unsupported.Format, FormatJKS)
	}
}
