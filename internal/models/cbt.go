package models

// MoodEntry is a single mood with intensity before and after the exercise.
type MoodEntry struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IntensityBefore int    `json:"intensityBefore" validate:"min=0,max=100"`
	IntensityAfter  int    `json:"intensityAfter" validate:"min=0,max=100"`
}

// BalancedEntry is a balanced-thought statement with a belief rating.
type BalancedEntry struct {
	Text   string `json:"text"`
	Belief int    `json:"belief" validate:"min=0,max=100"`
}

// CBTRecord is one thought-record journal entry. Records are stored per user
// as an ordered sequence and expire 90 days after their timestamp.
type CBTRecord struct {
	ID                string          `json:"id"`
	Timestamp         int64           `json:"timestamp"` // epoch milliseconds
	Situation         string          `json:"situation"`
	Moods             []MoodEntry     `json:"moods"`
	AutomaticThoughts []string        `json:"automaticThoughts"`
	HotThought        string          `json:"hotThought"`
	EvidenceFor       []string        `json:"evidenceFor"`
	EvidenceAgainst   []string        `json:"evidenceAgainst"`
	BalancedEntries   []BalancedEntry `json:"balancedEntries"`
	Analysis          map[string]any  `json:"analysis,omitempty"`
}
