package domain

// QAEntry is one row of the curated knowledge base. Entries are built once
// by the dataset loader and never mutated; a reload produces a fresh slice.
type QAEntry struct {
	ID           int
	Question     string
	Answer       string
	Category     string
	Reference    string
	Remarks      string
	FAQID        string
	DisplayOrder int
}

// IsFAQ reports whether the entry is part of the curated FAQ listing for
// its category. The sheet marks such rows with the remark below and a
// stable FAQ id.
func (e QAEntry) IsFAQ() bool {
	return e.Remarks == FAQRemark && e.FAQID != ""
}

// FAQRemark is the remarks-column value that flags a row as a curated FAQ.
const FAQRemark = "よくある質問"

// MatchResult is a single scored candidate returned by the match engine.
type MatchResult struct {
	Entry QAEntry
	// Score is the normalized similarity in [0,1] between the query and
	// Entry.Question.
	Score float64
	// MatchedTerms lists the query tokens that also occur in the question.
	MatchedTerms []string
}

// Citation is a display-only projection of a match, recomputed per response.
type Citation struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Excerpt     string  `json:"excerpt"`
	SourceLabel string  `json:"source_label,omitempty"`
	Confidence  float64 `json:"confidence"`
	Verified    bool    `json:"verified"`
}

// CitationSet is the bounded list of citations attached to a search answer.
type CitationSet struct {
	Items        []Citation `json:"citations"`
	TotalSources int        `json:"total_sources"`
	Showing      int        `json:"showing"`
	HasMore      bool       `json:"has_more"`
}
