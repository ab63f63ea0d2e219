package status

import (
	"testing"
)

func TestDecode(t *testing.T) {
	payload := []byte(`{"name":"Bedroom","pwr":"1","rhset":50,"rh":43.5,"err":0,"swversion":"1.0.7"}`)

	s, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if name, _ := s.String("name"); name != "Bedroom" {
		t.Errorf("String(name) = %q, want Bedroom", name)
	}
	if target, ok := s.Int("rhset"); !ok || target != 50 {
		t.Errorf("Int(rhset) = %d,%v, want 50,true", target, ok)
	}
	if rh, ok := s.Float("rh"); !ok || rh != 43.5 {
		t.Errorf("Float(rh) = %v,%v, want 43.5,true", rh, ok)
	}
	if !s.Has("err") {
		t.Error("Has(err) = false, want true")
	}
	if s.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("Decode() with invalid payload expected error")
	}
}

func TestTypedGetters(t *testing.T) {
	s := DeviceStatus{
		"i":  7,
		"i6": int64(9),
		"f":  2.5,
		"b":  true,
		"s":  "x",
	}

	if v, ok := s.Int("i"); !ok || v != 7 {
		t.Errorf("Int(i) = %d,%v", v, ok)
	}
	if v, ok := s.Int("i6"); !ok || v != 9 {
		t.Errorf("Int(i6) = %d,%v", v, ok)
	}
	if v, ok := s.Int("f"); !ok || v != 2 {
		t.Errorf("Int(f) = %d,%v", v, ok)
	}
	if _, ok := s.Int("s"); ok {
		t.Error("Int(s) should not convert strings")
	}
	if v, ok := s.Float("i"); !ok || v != 7 {
		t.Errorf("Float(i) = %v,%v", v, ok)
	}
	if v, ok := s.Bool("b"); !ok || !v {
		t.Errorf("Bool(b) = %v,%v", v, ok)
	}
}

func TestClone(t *testing.T) {
	orig := DeviceStatus{"pwr": "1", "om": "a"}

	cp := orig.Clone()
	cp["pwr"] = "0"

	if v, _ := orig.String("pwr"); v != "1" {
		t.Errorf("Clone() mutated original: pwr = %q", v)
	}

	var nilStatus DeviceStatus
	if nilStatus.Clone() != nil {
		t.Error("Clone() of nil should stay nil")
	}
}
