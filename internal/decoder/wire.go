package decoder

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
)

// EncodedPart is the wire envelope one observation-part column holds: the
// encoding config the client claims to have used, plus exactly one of the
// typed payloads below, selected by Algorithm. Ingest (out of scope, spec
// §1) is responsible for producing these bytes; internal/reportgen is the
// only in-repo reader, translating them into engine.Part values.
type EncodedPart struct {
	EncodingConfigID idutil.Triple
	Algorithm        config.EncodingAlgorithm
	Threshold        *ThresholdPart
	Basic            *BasicPart
}

// Payload returns the concrete payload value matching Algorithm, or nil if
// the envelope is malformed (algorithm/payload mismatch).
func (p EncodedPart) Payload() interface{} {
	switch p.Algorithm {
	case config.Forculus:
		if p.Threshold != nil {
			return *p.Threshold
		}
	case config.RapporBasic:
		if p.Basic != nil {
			return *p.Basic
		}
	case config.RapporString:
		return struct{}{}
	}
	return nil
}

// EncodePart serializes an observation part for storage as an observation
// column value.
func EncodePart(p EncodedPart) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return buf.Bytes(), nil
}

// DecodePart parses an observation column value produced by EncodePart.
func DecodePart(b []byte) (EncodedPart, error) {
	var p EncodedPart
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return EncodedPart{}, fmt.Errorf("%w: malformed observation part: %v", errs.InvalidArgument, err)
	}
	return p, nil
}
