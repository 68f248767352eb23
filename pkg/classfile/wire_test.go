package classfile

import (
	"bytes"
	"reflect"
	"testing"
)

func TestWireRoundTrip(t *testing.T) {
	class, err := ParseBytes(demoClass().Bytes())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	data, err := Marshal(class)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(class, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, class)
	}
}

func TestWireDeterministic(t *testing.T) {
	class, err := ParseBytes(demoClass().Bytes())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	a, err := Marshal(class)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, err := Marshal(class)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding is not deterministic")
	}
}

func TestWireGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0x00, 0x01}); err == nil {
		t.Error("Unmarshal of garbage succeeded")
	}
}
