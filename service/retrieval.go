package service

import (
	"context"

	"github.com/Ethan225300/mbspro/logic/retrieval"
	"github.com/Ethan225300/mbspro/types"
)

// RetrievalService serves single-shot retrieval without verification.
type RetrievalService struct {
	retriever *retrieval.Retriever
}

func NewRetrievalService(retriever *retrieval.Retriever) *RetrievalService {
	return &RetrievalService{retriever: retriever}
}

// Query runs one pass of the pipeline with both reflection knobs off.
func (s *RetrievalService) Query(ctx context.Context, query string, top int) (*types.RetrievalResult, error) {
	return s.retriever.Retrieve(ctx, query, retrieval.Options{TopK: top})
}
