package gitobj

import "fmt"

// ErrUnknownKind is returned when Extract sees an object kind it does not
// know how to walk references from — a fatal condition in the engine
// (spec §7: "unknown object kind encountered during extraction").
var ErrUnknownKind = fmt.Errorf("gitobj: unknown object kind")

// Extract implements the Object-reference Extractor: commit -> tree +
// parents, tree -> entry OIDs, blob -> nothing, tag -> target OID.
func Extract(obj Object) ([]string, error) {
	switch obj.Kind {
	case KindCommit:
		refs := make([]string, 0, 1+len(obj.ParentOIDs))
		refs = append(refs, obj.TreeOID)
		refs = append(refs, obj.ParentOIDs...)
		return refs, nil
	case KindTree:
		return obj.EntryOIDs, nil
	case KindBlob:
		return nil, nil
	case KindTag:
		return []string{obj.TargetOID}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, obj.Kind)
	}
}
