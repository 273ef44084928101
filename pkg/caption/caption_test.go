package caption_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/voxhire/go-voxhire/pkg/caption"
)

func TestSanitize(t *testing.T) {
	t.Run("strips emphasis markers", func(t *testing.T) {
		got := caption.Sanitize("This is **bold** text")
		if got != "This is bold text" {
			t.Errorf("expected %q, got %q", "This is bold text", got)
		}
	})

	t.Run("strips header and code markers", func(t *testing.T) {
		got := caption.Sanitize("## Heading with `code` inside")
		if got != "Heading with code inside" {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("preserves snake_case identifiers", func(t *testing.T) {
		got := caption.Sanitize("Rename __old_name__ to `user_id` in the schema")
		if got != "Rename old_name to user_id in the schema" {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		got := caption.Sanitize("  too   many\n\nspaces  ")
		if got != "too many spaces" {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		inputs := []string{
			"This is **bold** text",
			"# Header\nwith *emphasis* and `code`",
			"already clean text",
			"",
		}
		for _, in := range inputs {
			once := caption.Sanitize(in)
			twice := caption.Sanitize(once)
			if once != twice {
				t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
			}
		}
	})
}

func TestSegment(t *testing.T) {
	t.Run("empty input yields empty list", func(t *testing.T) {
		if got := caption.Segment(""); len(got) != 0 {
			t.Errorf("expected empty, got %v", got)
		}
	})

	t.Run("short text is a single segment", func(t *testing.T) {
		in := "Tell me about a project you are proud of."
		got := caption.Segment(in)
		if len(got) != 1 || got[0] != in {
			t.Errorf("expected [%q], got %v", in, got)
		}
	})

	t.Run("short text equals its sanitized form", func(t *testing.T) {
		in := "Tell me about **your** experience."
		got := caption.Segment(in)
		if len(got) != 1 || got[0] != caption.Sanitize(in) {
			t.Errorf("expected [%q], got %v", caption.Sanitize(in), got)
		}
	})

	t.Run("long text splits at sentence boundaries", func(t *testing.T) {
		in := "Let's start with your background and walk through your resume in detail. " +
			"Then we will move on to a coding exercise that should take about thirty minutes. " +
			"Finally we will leave some time for your questions about the team."
		got := caption.Segment(in)
		if len(got) < 2 {
			t.Fatalf("expected multiple segments, got %d: %v", len(got), got)
		}
		for _, seg := range got {
			if len(seg) > caption.SegmentBudget {
				t.Errorf("segment exceeds budget (%d chars): %q", len(seg), seg)
			}
			if seg == "" {
				t.Error("empty segment")
			}
		}
	})

	t.Run("abbreviations do not end sentences", func(t *testing.T) {
		in := "I spoke with Dr. Smith about the role and she recommended this team very highly. " +
			"Prof. Jones agreed that the project was a strong fit for my background and skills."
		got := caption.Segment(in)
		for _, seg := range got {
			if strings.HasSuffix(seg, "Dr.") || strings.HasSuffix(seg, "Prof.") {
				t.Errorf("segment split after abbreviation: %q", seg)
			}
		}
	})

	t.Run("oversized sentence is split at word boundaries", func(t *testing.T) {
		in := strings.Repeat("word ", 60) + "end."
		got := caption.Segment(in)
		if len(got) < 2 {
			t.Fatalf("expected multiple segments, got %v", got)
		}
		for _, seg := range got {
			if len(seg) > caption.SegmentBudget {
				t.Errorf("segment exceeds budget: %d chars", len(seg))
			}
		}
	})

	t.Run("oversized multibyte word is not chopped mid-rune", func(t *testing.T) {
		in := strings.Repeat("ü", caption.SegmentBudget+40)
		got := caption.Segment(in)
		if len(got) < 2 {
			t.Fatalf("expected multiple segments, got %d", len(got))
		}
		for _, seg := range got {
			if !utf8.ValidString(seg) {
				t.Errorf("segment is not valid UTF-8: %q", seg)
			}
			if len(seg) > caption.SegmentBudget {
				t.Errorf("segment exceeds budget: %d bytes", len(seg))
			}
		}
	})
}

func TestQueue(t *testing.T) {
	t.Run("current on empty queue is nil", func(t *testing.T) {
		q := caption.NewQueue(0)
		if q.Current() != nil {
			t.Error("expected nil current")
		}
	})

	t.Run("assistant text becomes current", func(t *testing.T) {
		q := caption.NewQueue(0)
		q.Enqueue("Describe your **last** project.", caption.RoleAssistant)
		cur := q.Current()
		if cur == nil {
			t.Fatal("expected current caption")
		}
		if cur.Text != "Describe your last project." {
			t.Errorf("expected sanitized text, got %q", cur.Text)
		}
		if !cur.Visible {
			t.Error("expected new caption to be visible")
		}
	})

	t.Run("candidate text never changes current", func(t *testing.T) {
		q := caption.NewQueue(0)
		q.Enqueue("First question.", caption.RoleAssistant)
		q.Enqueue("My answer about the project.", caption.RoleCandidate)
		cur := q.Current()
		if cur == nil || cur.Text != "First question." {
			t.Errorf("candidate enqueue changed current: %+v", cur)
		}
	})

	t.Run("candidate text is filtered from history", func(t *testing.T) {
		q := caption.NewQueue(0)
		q.Enqueue("Question one.", caption.RoleAssistant)
		q.Enqueue("Candidate answer.", caption.RoleCandidate)
		q.Enqueue("Question two.", caption.RoleAssistant)

		hist := q.History(10)
		if len(hist) != 2 {
			t.Fatalf("expected 2 assistant captions, got %d", len(hist))
		}
		for _, c := range hist {
			if c.Role != caption.RoleAssistant {
				t.Errorf("candidate caption leaked into history: %+v", c)
			}
		}
	})

	t.Run("history is newest first", func(t *testing.T) {
		q := caption.NewQueue(0)
		q.Enqueue("one", caption.RoleAssistant)
		q.Enqueue("two", caption.RoleAssistant)
		q.Enqueue("three", caption.RoleAssistant)

		hist := q.History(2)
		if len(hist) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(hist))
		}
		if hist[0].Text != "three" || hist[1].Text != "two" {
			t.Errorf("expected newest first, got %q, %q", hist[0].Text, hist[1].Text)
		}
	})

	t.Run("capacity evicts oldest", func(t *testing.T) {
		q := caption.NewQueue(3)
		for _, text := range []string{"a", "b", "c", "d"} {
			q.Enqueue(text, caption.RoleAssistant)
		}
		if q.Len() != 3 {
			t.Errorf("expected 3 retained entries, got %d", q.Len())
		}
		hist := q.History(10)
		if len(hist) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(hist))
		}
		for _, c := range hist {
			if c.Text == "a" {
				t.Error("oldest entry was not evicted")
			}
		}
	})

	t.Run("history returns at most k", func(t *testing.T) {
		q := caption.NewQueue(10)
		for _, text := range []string{"a", "b", "c", "d", "e"} {
			q.Enqueue(text, caption.RoleAssistant)
		}
		if got := len(q.History(2)); got != 2 {
			t.Errorf("expected 2, got %d", got)
		}
		if got := len(q.History(100)); got != 5 {
			t.Errorf("expected 5, got %d", got)
		}
	})

	t.Run("visibility toggle", func(t *testing.T) {
		q := caption.NewQueue(0)
		q.SetCurrentVisibility(false) // no-op on empty queue

		q.Enqueue("hello", caption.RoleAssistant)
		q.SetCurrentVisibility(false)
		if cur := q.Current(); cur == nil || cur.Visible {
			t.Errorf("expected hidden current, got %+v", cur)
		}
		q.SetCurrentVisibility(true)
		if cur := q.Current(); cur == nil || !cur.Visible {
			t.Errorf("expected visible current, got %+v", cur)
		}
	})
}
