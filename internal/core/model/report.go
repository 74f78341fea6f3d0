package model

import "time"

type AnnotationFailure struct {
	InputID string `json:"inputId"`
	Kind    string `json:"kind"` // not_found, upstream
	Message string `json:"message"`
}

// EnrichmentStats counts what a supplementary source contributed to a batch.
type EnrichmentStats struct {
	Enabled      bool `json:"enabled"`
	UsedCount    int  `json:"usedCount"`    // records the source had an id for
	SymbolsAdded int  `json:"symbolsAdded"` // symbols filled in from this source
	GoTermsAdded int  `json:"goTermsAdded"` // records that gained GO terms from this source
}

type ReportMeta struct {
	RequestID      string          `json:"requestId,omitempty"`
	Version        string          `json:"version"`
	CountInput     int             `json:"countInput"`
	CountProcessed int             `json:"countProcessed"`
	Timestamp      time.Time       `json:"timestamp"`
	UniProt        EnrichmentStats `json:"uniprot"`
	NCBI           EnrichmentStats `json:"ncbi"`
}

// AnnotationReport is the batch counterpart of ComparisonResult.
type AnnotationReport struct {
	Annotations []GeneRecord        `json:"annotations"`
	GeneSymbols []string            `json:"geneSymbols"`
	GoIDs       []string            `json:"goIds"`
	Groups      [][]string          `json:"groups,omitempty"` // input ids sharing GO terms
	Failures    []AnnotationFailure `json:"failures,omitempty"`
	Meta        ReportMeta          `json:"meta"`
}
