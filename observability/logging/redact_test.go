package logging

import "testing"

func TestIsAllowlisted(t *testing.T) {
	if !IsAllowlisted("Service") {
		t.Fatal("expected case-insensitive allowlist match for 'service'")
	}
	if IsAllowlisted("address") {
		t.Fatal("address must not be allowlisted by default")
	}
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue(""); got != "" {
		t.Fatalf("empty value should pass through unchanged, got %q", got)
	}
	if got := MaskValue("secret"); got != RedactedValue {
		t.Fatalf("non-empty value should be masked, got %q", got)
	}
}

func TestMaskFieldRedactsNonAllowlistedKeys(t *testing.T) {
	attr := MaskField("address", "0xabc")
	if attr.Key != "address" {
		t.Fatalf("expected key to be preserved, got %q", attr.Key)
	}
	if got := attr.Value.String(); got != RedactedValue {
		t.Fatalf("expected address value to be redacted, got %q", got)
	}

	attr = MaskField("market", "cDAI")
	if got := attr.Value.String(); got != "cDAI" {
		t.Fatalf("allowlisted key must pass through unredacted, got %q", got)
	}
}
