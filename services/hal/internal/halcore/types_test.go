package halcore

import "testing"

func TestLevelOf(t *testing.T) {
	if LevelOf(true) != High || LevelOf(false) != Low {
		t.Fatal("LevelOf mapping incorrect")
	}
	if High.String() != "high" || Low.String() != "low" {
		t.Fatal("Level.String mapping incorrect")
	}
}
