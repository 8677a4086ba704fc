package domain

import "errors"

// ErrInvalidRequest indicates that an evaluation request contains invalid data.
var ErrInvalidRequest = errors.New("invalid evaluation request")

// ErrInvalidMatchMode indicates an unknown text match predicate name.
var ErrInvalidMatchMode = errors.New("invalid match mode")

// ErrInvalidInterval indicates a char interval whose end precedes its start.
var ErrInvalidInterval = errors.New("extraction end offset precedes start offset")

// ErrIncompletePair indicates a document pair without a gold or predicted set.
var ErrIncompletePair = errors.New("document pair lacks gold or predicted extractions")

// ErrInvalidMetrics indicates metrics whose true positives exceed a side's count.
var ErrInvalidMetrics = errors.New("true positives exceed predicted or gold count")

// ErrRequestTooLarge indicates an evaluation request too large for one workflow payload.
var ErrRequestTooLarge = errors.New("evaluation request exceeds the workflow payload limit")
