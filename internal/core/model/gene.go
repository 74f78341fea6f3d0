package model

// GoAnnotation is a single Gene Ontology term attached to a gene.
// Two annotations are the same annotation when their IDs match.
type GoAnnotation struct {
	ID   string `json:"id"`   // e.g. GO:0005515
	Term string `json:"term"` // human-readable label, may be empty
}

// GeneRecord is the merged view of one input identifier.
type GeneRecord struct {
	InputID     string         `json:"inputId"`
	Symbol      string         `json:"symbol"`
	Description string         `json:"description"`
	Organism    string         `json:"organism"`
	GoTerms     []GoAnnotation `json:"goTerms"`
	SecondaryID string         `json:"secondaryId,omitempty"` // UniProt accession
	TertiaryID  string         `json:"tertiaryId,omitempty"`  // NCBI Gene id
}

// GoIDs returns the annotation ids in record order.
func (r GeneRecord) GoIDs() []string {
	ids := make([]string, 0, len(r.GoTerms))
	for _, a := range r.GoTerms {
		ids = append(ids, a.ID)
	}
	return ids
}

type ComparisonResult struct {
	RecordA GeneRecord `json:"recordA"`
	RecordB GeneRecord `json:"recordB"`
}
