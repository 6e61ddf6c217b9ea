package condition

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"none english", "None", nil},
		{"none upper", "NONE", nil},
		{"none chinese", " 无 ", nil},
		{"single", "糖尿病", []string{Diabetes}},
		{"ascii comma", "糖尿病,肥胖", []string{Diabetes, Obesity}},
		{"fullwidth comma", "糖尿病，肥胖", []string{Diabetes, Obesity}},
		{"enumeration comma", "糖尿病、高血压", []string{Diabetes, Hypertension}},
		{"semicolons", "高血脂;肥胖；糖尿病", []string{Hyperlipidemia, Obesity, Diabetes}},
		{"plus", "肥胖+高血压", []string{Obesity, Hypertension}},
		{"trim and drop empty", " 糖尿病 ,, ,肥胖 ", []string{Diabetes, Obesity}},
		{"dedup keeps first", "肥胖,糖尿病,肥胖", []string{Obesity, Diabetes}},
		{"english aliases", "Diabetes, obesity", []string{Diabetes, Obesity}},
		{"alias dedups with canonical", "diabetes,糖尿病", []string{Diabetes}},
		{"unknown kept", "痛风,糖尿病", []string{"痛风", Diabetes}},
		{"none token dropped", "none,肥胖", []string{Obesity}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"none",
		"糖尿病",
		"肥胖，糖尿病、肥胖;高血压+高血脂",
		"Diabetes ; hypertension ;; 痛风",
		" a , b ,a ",
	}

	for _, in := range inputs {
		first := Parse(in)
		second := Parse(Join(first))
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("not idempotent for %q: %v then %v", in, first, second)
		}
	}
}

func TestHas(t *testing.T) {
	tags := Parse("糖尿病,肥胖")
	if !Has(tags, Diabetes) || !Has(tags, Obesity) {
		t.Fatalf("expected both tags in %v", tags)
	}
	if Has(tags, Hypertension) {
		t.Fatal("unexpected hypertension tag")
	}
}
