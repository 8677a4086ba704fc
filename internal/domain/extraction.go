// Package domain extraction defines the entity mention records that flow
// between the extraction engine, gold annotation files, and the scorer.
// Records are plain values: they are produced once by a collaborator or a
// loader and are never mutated during an evaluation run.
package domain

// Extraction is one recognized clinical entity mention.
// Class is compared with exact, case-sensitive equality during scoring;
// Text is compared through NormalizeText and the configured MatchMode.
// The char interval and snippet are carried for grounding only and never
// influence scoring.
type Extraction struct {
	// Class is the entity type, e.g. "medication" or "lab_value".
	Class string `json:"class" yaml:"class"`

	// Text is the verbatim mention text.
	Text string `json:"text" yaml:"text"`

	// Attributes link related mentions (e.g. medication_group).
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	// Start is the inclusive character offset of the mention in the source text.
	Start *int `json:"start,omitempty" yaml:"start,omitempty" validate:"omitempty,min=0"`

	// End is the exclusive character offset of the mention in the source text.
	End *int `json:"end,omitempty" yaml:"end,omitempty" validate:"omitempty,min=0"`

	// Snippet is the source slice addressed by Start/End when known.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Validate checks the char interval when one is present.
// Empty class or text is allowed: such records simply never match.
func (e *Extraction) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	if e.Start != nil && e.End != nil && *e.End < *e.Start {
		return ErrInvalidInterval
	}
	return nil
}

// HasInterval reports whether both char offsets are set.
func (e Extraction) HasInterval() bool {
	return e.Start != nil && e.End != nil
}

// Clone returns a deep copy so callers can never alias attribute maps
// or interval pointers of a shared record.
func (e Extraction) Clone() Extraction {
	out := e
	out.Attributes = cloneStringMap(e.Attributes)
	if e.Start != nil {
		s := *e.Start
		out.Start = &s
	}
	if e.End != nil {
		end := *e.End
		out.End = &end
	}
	return out
}

// CloneExtractions deep-copies a record sequence, preserving nil.
func CloneExtractions(in []Extraction) []Extraction {
	if in == nil {
		return nil
	}
	out := make([]Extraction, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// Classes returns the distinct classes of the given sequences in first-seen order.
func Classes(seqs ...[]Extraction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, seq := range seqs {
		for _, e := range seq {
			if _, ok := seen[e.Class]; ok {
				continue
			}
			seen[e.Class] = struct{}{}
			out = append(out, e.Class)
		}
	}
	return out
}

// FilterByClass returns the records of the given class, preserving order.
func FilterByClass(in []Extraction, class string) []Extraction {
	var out []Extraction
	for _, e := range in {
		if e.Class == class {
			out = append(out, e)
		}
	}
	return out
}
