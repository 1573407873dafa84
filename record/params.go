package record

import "github.com/fcgicore/fastcgi/fcgierr"

// DecodeParams decodes a Params frame's accumulated payload into a
// name-value map. Values MUST be present (spec §3); DecodePairs already
// guarantees that (every decoded pair carries a non-nil Value), so this is
// a thin, record-specific entry point kept distinct from GetValues'
// decoding for symmetry and so each record type owns its own invariants.
func DecodeParams(payload []byte) (map[string]string, error) {
	pairs, err := DecodePairs(payload)
	if err != nil {
		return nil, err
	}
	return PairsToMap(pairs), nil
}

// EncodeParamsPairs converts a Params map into wire-ready pairs.
func EncodeParamsPairs(params map[string]string) []Pair {
	return MapToPairs(params)
}

// DecodeGetValues decodes a GetValues frame's payload into a list of
// queried names. Per spec §3, GetValues values MUST be absent (length 0);
// a non-empty value is CorruptedFrame.
func DecodeGetValues(payload []byte) ([]string, error) {
	pairs, err := DecodePairs(payload)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if len(p.Value) != 0 {
			return nil, fcgierr.ErrCorruptedFrame
		}
		names = append(names, string(p.Name))
	}
	return names, nil
}

// DecodeGetValuesResult decodes a GetValuesResult frame's payload into a
// name-value map. Values MUST be present per spec §3.
func DecodeGetValuesResult(payload []byte) (map[string]string, error) {
	pairs, err := DecodePairs(payload)
	if err != nil {
		return nil, err
	}
	return PairsToMap(pairs), nil
}
