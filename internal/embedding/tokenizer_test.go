package embedding

import (
	"reflect"
	"testing"
)

func TestSplitWords(t *testing.T) {
	got := SplitWords("Hello, World!\nThe GPU-cluster costs 42€.")
	want := []string{"hello", "world", "the", "gpu", "cluster", "costs", "42"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitWords = %v, want %v", got, want)
	}
	if len(SplitWords("  ...  ")) != 0 {
		t.Error("punctuation-only text should have no words")
	}
}

func TestHashString_deterministic(t *testing.T) {
	if HashString("alpha") != HashString("alpha") {
		t.Error("hash should be deterministic")
	}
	if HashString("alpha") == HashString("beta") {
		t.Error("distinct words should hash differently")
	}
}
