package domain

import (
	"reflect"
	"testing"
)

func TestAncestorNames(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"Default", nil},
		{"Japanese::Vocab", []string{"Japanese"}},
		{"A::B::C", []string{"A", "A::B"}},
	}
	for _, tt := range tests {
		if got := AncestorNames(tt.name); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("AncestorNames(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsAncestorOf(t *testing.T) {
	d := &Deck{Name: "Japanese"}
	if !d.IsAncestorOf("Japanese::Vocab") {
		t.Error("parent does not see its child")
	}
	if !d.IsAncestorOf("Japanese::Vocab::N5") {
		t.Error("parent does not see its grandchild")
	}
	if d.IsAncestorOf("Japanese") {
		t.Error("deck is its own ancestor")
	}
	if d.IsAncestorOf("JapaneseHistory") {
		t.Error("name prefix mistaken for tree ancestry")
	}
}

func TestRollCounters(t *testing.T) {
	d := &Deck{NewToday: 5, ReviewToday: 30, LearnToday: 12, TodayStamp: 10}
	d.RollCounters(10)
	if d.NewToday != 5 {
		t.Errorf("counters reset on same day")
	}
	d.RollCounters(11)
	if d.NewToday != 0 || d.ReviewToday != 0 || d.LearnToday != 0 {
		t.Errorf("counters = (%d, %d, %d), want reset on new day", d.NewToday, d.ReviewToday, d.LearnToday)
	}
	if d.TodayStamp != 11 {
		t.Errorf("TodayStamp = %d, want 11", d.TodayStamp)
	}
}

func TestDefaultDeckConfigValid(t *testing.T) {
	cfg := DefaultDeckConfig()
	if cfg.InitialEase < 1300 {
		t.Errorf("InitialEase = %d, below the ease floor", cfg.InitialEase)
	}
	if len(cfg.NewSteps) == 0 {
		t.Error("no learning steps configured")
	}
	if cfg.IntervalMultiplier <= 0 {
		t.Error("interval multiplier must be positive")
	}
}

func TestNoteTags(t *testing.T) {
	n := &Note{Tags: "japanese verbs"}
	if !n.HasTag("verbs") {
		t.Error("HasTag misses existing tag")
	}
	if n.HasTag("verb") {
		t.Error("HasTag matches a prefix")
	}
	n.AddTag("leech")
	if !n.HasTag("leech") {
		t.Error("AddTag did not stick")
	}
	before := n.Tags
	n.AddTag("leech")
	if n.Tags != before {
		t.Errorf("AddTag duplicated an existing tag: %q", n.Tags)
	}
}

func TestCardHomeDeck(t *testing.T) {
	c := &Card{DeckID: 5, OriginalDeck: 2}
	if !c.Filtered() {
		t.Error("card with original deck not treated as filtered")
	}
	if c.HomeDeck() != 2 {
		t.Errorf("HomeDeck = %d, want 2", c.HomeDeck())
	}
	c = &Card{DeckID: 5}
	if c.Filtered() || c.HomeDeck() != 5 {
		t.Errorf("plain card: filtered %v home %d", c.Filtered(), c.HomeDeck())
	}
}

func TestRatingText(t *testing.T) {
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		text, err := r.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", r, err)
		}
		var back Rating
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != r {
			t.Errorf("round trip %v -> %q -> %v", r, text, back)
		}
	}
	var r Rating
	if err := r.UnmarshalText([]byte("brilliant")); err == nil {
		t.Error("unknown rating accepted")
	}
}

func TestQueuePredicates(t *testing.T) {
	for _, q := range []CardQueue{QueueNew, QueueLearning, QueueReview, QueueDayLearn, QueuePreviewFiltered} {
		if !q.Answerable() {
			t.Errorf("%v not answerable", q)
		}
	}
	for _, q := range []CardQueue{QueueSuspended, QueueSiblingBuried, QueueManuallyBuried} {
		if q.Answerable() {
			t.Errorf("%v answerable", q)
		}
	}
	if !QueueSiblingBuried.Buried() || !QueueManuallyBuried.Buried() {
		t.Error("buried queues not recognized")
	}
	if QueueSuspended.Buried() {
		t.Error("suspended counted as buried")
	}
}
