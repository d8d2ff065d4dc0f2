// Package gitobj is the narrow, external "on-disk version-control object
// decoder" collaborator the core engine depends on (never on a concrete
// library) so it can extract further object identifiers from commits,
// trees, blobs and tags without caring how they're actually parsed.
package gitobj

// Kind is the decoded type of a version-control object.
type Kind int

const (
	KindCommit Kind = iota
	KindTree
	KindBlob
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindTree:
		return "tree"
	case KindBlob:
		return "blob"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Object is the minimal typed view the extractor needs out of a decoded
// commit/tree/blob/tag, regardless of how it was stored (loose or packed).
type Object struct {
	OID  string
	Kind Kind

	// Commit
	TreeOID    string
	ParentOIDs []string

	// Tree
	EntryOIDs []string

	// Tag
	TargetOID string
}

// PackedObject is one object recovered while iterating a pack/idx pair.
type PackedObject struct {
	Object
}

// Decoder is the contract the engine consumes. The production
// implementation (decoder.go) is backed by github.com/go-git/go-git/v5's
// plumbing packages; tests may substitute a fake.
type Decoder interface {
	// DecodeLoose parses the loose object stored at path (the inflated
	// "<type> <size>\0<content>" format) and returns its OID-bearing
	// fields.
	DecodeLoose(path, oid string) (Object, error)

	// IterPack iterates every object contained in the pack file at
	// packPath using the sibling index at idxPath.
	IterPack(packPath, idxPath string) ([]PackedObject, error)

	// IndexBlobOIDs returns the OID of every blob entry (regular file,
	// executable or symlink) recorded in the .git/index file at path.
	IndexBlobOIDs(path string) ([]string, error)
}
