package models

import "testing"

func TestParseDuplicateStrategy(t *testing.T) {
	tests := []struct {
		raw     string
		want    DuplicateStrategy
		wantErr bool
	}{
		{"", DuplicateReject, false},
		{"reject", DuplicateReject, false},
		{"update", DuplicateUpdate, false},
		{"ignore", DuplicateIgnore, false},
		{"overwrite", "", true},
		{"REJECT", "", true},
	}

	for _, tt := range tests {
		t.Run("raw_"+tt.raw, func(t *testing.T) {
			got, err := ParseDuplicateStrategy(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuplicateStrategy(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseDuplicateStrategy(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeProcessStrategy(t *testing.T) {
	if got := NormalizeProcessStrategy(""); got != ProcessReturnExisting {
		t.Fatalf("empty value must default to return_existing, got %q", got)
	}
	if got := NormalizeProcessStrategy("reprocess"); got != ProcessReprocess {
		t.Fatalf("got %q", got)
	}
	// Unrecognized values pass through; they conflict later, once an
	// existing receipt is found.
	if got := NormalizeProcessStrategy("overwrite"); got != ProcessStrategy("overwrite") {
		t.Fatalf("got %q", got)
	}
}

func TestValidityProjection(t *testing.T) {
	if ValidityUnknown.IsValid() || ValidityInvalid.IsValid() {
		t.Fatal("only the valid state projects to true")
	}
	if !ValidityValid.IsValid() {
		t.Fatal("valid state must project to true")
	}
}
