package comparer

import (
	"log/slog"
	"time"
)

// Level is the finest granularity at which changed regions are refined.
type Level int

const (
	// LevelParagraph reports a changed paragraph as a whole deletion plus insertion.
	LevelParagraph Level = iota
	// LevelWord refines changed paragraphs down to words.
	LevelWord
	// LevelAtom refines changed words down to single characters.
	LevelAtom
)

func (l Level) String() string {
	switch l {
	case LevelParagraph:
		return "paragraph"
	case LevelWord:
		return "word"
	case LevelAtom:
		return "atom"
	}
	return "unknown"
}

// TieBreak selects among equally long common subsequences.
type TieBreak int

const (
	// PreferEarliestLeft keeps matches as early as possible in the left document.
	PreferEarliestLeft TieBreak = iota
	// PreferEarliestRight keeps matches as early as possible in the right document.
	PreferEarliestRight
)

// Side identifies one of the two compared documents.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Settings configures a Comparer. Build one with DefaultSettings and override fields.
type Settings struct {
	CaseInsensitive                      bool
	ConflateBreakingAndNonbreakingSpaces bool

	// AuthorForRevisions and DateTimeForRevisions are written on generated revisions.
	// A zero date means the time of each comparison, so repeated comparisons of the
	// same documents produce identical output only when the date is fixed.
	AuthorForRevisions   string
	DateTimeForRevisions time.Time

	DetailThreshold Level

	// MinMatchRatio is the fraction of matching text below which two paired paragraph
	// regions are reported as a whole deletion followed by a whole insertion.
	MinMatchRatio float64

	TieBreak TieBreak

	// EqualSource selects which document supplies the markup of equal content.
	EqualSource Side

	// TrackFormattingChanges emits w:rPrChange and w:pPrChange for equal content whose
	// properties differ.
	TrackFormattingChanges bool

	Logger *slog.Logger
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		AuthorForRevisions:     "wmlcompare",
		DetailThreshold:        LevelWord,
		MinMatchRatio:          0.15,
		TieBreak:               PreferEarliestLeft,
		EqualSource:            SideRight,
		TrackFormattingChanges: true,
	}
}

const revisionDateLayout = "2006-01-02T15:04:05Z"

func (s *Settings) revisionDate() string {
	if s.DateTimeForRevisions.IsZero() {
		return time.Now().UTC().Format(revisionDateLayout)
	}
	return s.DateTimeForRevisions.UTC().Format(revisionDateLayout)
}
