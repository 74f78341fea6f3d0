package model

// PrimaryData is what the primary gene-annotation source knows about an identifier.
type PrimaryData struct {
	ID          string
	Symbol      string
	Description string
	Organism    string
	GoTerms     []GoAnnotation
}

// SecondaryData is the supplemental annotation set of a protein-annotation entry.
type SecondaryData struct {
	Accession string
	Symbol    string
	GoTerms   []GoAnnotation
}
