package gitobj

import (
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/idxfile"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/format/objfile"
	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GoGitDecoder is the production Decoder, backed by go-git's plumbing
// packages: objfile for loose objects, packfile+idxfile for pack pairs,
// and format/index for the staging index.
type GoGitDecoder struct{}

// NewGoGitDecoder returns the go-git-backed Decoder.
func NewGoGitDecoder() *GoGitDecoder {
	return &GoGitDecoder{}
}

func (GoGitDecoder) DecodeLoose(path, oid string) (Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return Object{}, fmt.Errorf("gitobj: open loose object %s: %w", path, err)
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return Object{}, fmt.Errorf("gitobj: read loose object header %s: %w", path, err)
	}
	defer r.Close()

	typ, size, err := r.Header()
	if err != nil {
		return Object{}, fmt.Errorf("gitobj: read loose object header %s: %w", path, err)
	}

	mem := &plumbing.MemoryObject{}
	mem.SetType(typ)
	mem.SetSize(size)

	w, err := mem.Writer()
	if err != nil {
		return Object{}, fmt.Errorf("gitobj: buffer loose object %s: %w", path, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return Object{}, fmt.Errorf("gitobj: read loose object body %s: %w", path, err)
	}

	return decodeEncodedObject(oid, mem)
}

func (GoGitDecoder) IterPack(packPath, idxPath string) ([]PackedObject, error) {
	idxF, err := os.Open(idxPath)
	if err != nil {
		return nil, fmt.Errorf("gitobj: open pack index %s: %w", idxPath, err)
	}
	defer idxF.Close()

	idx := idxfile.NewMemoryIndex()
	if err := idxfile.NewDecoder(idxF).Decode(idx); err != nil {
		return nil, fmt.Errorf("gitobj: decode pack index %s: %w", idxPath, err)
	}

	packF, err := os.Open(packPath)
	if err != nil {
		return nil, fmt.Errorf("gitobj: open pack %s: %w", packPath, err)
	}
	defer packF.Close()

	storer := memory.NewStorage()
	scanner := packfile.NewScanner(packF)
	parser, err := packfile.NewParser(scanner, packfile.WithStorage(storer))
	if err != nil {
		return nil, fmt.Errorf("gitobj: create pack parser %s: %w", packPath, err)
	}
	if _, err := parser.Parse(); err != nil {
		return nil, fmt.Errorf("gitobj: parse pack %s: %w", packPath, err)
	}

	iter, err := storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return nil, fmt.Errorf("gitobj: iterate pack objects %s: %w", packPath, err)
	}

	var out []PackedObject
	err = iter.ForEach(func(enc plumbing.EncodedObject) error {
		oid := enc.Hash().String()
		obj, err := decodeEncodedObject(oid, enc)
		if err != nil {
			return err
		}
		out = append(out, PackedObject{obj})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitobj: decode pack objects %s: %w", packPath, err)
	}

	return out, nil
}

func (GoGitDecoder) IndexBlobOIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gitobj: open index %s: %w", path, err)
	}
	defer f.Close()

	idx := &index.Index{}
	if err := index.NewDecoder(f).Decode(idx); err != nil {
		return nil, fmt.Errorf("gitobj: decode index %s: %w", path, err)
	}

	oids := make([]string, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		switch entry.Mode {
		case filemode.Regular, filemode.Executable, filemode.Symlink:
			oids = append(oids, entry.Hash.String())
		}
	}
	return oids, nil
}

func decodeEncodedObject(oid string, enc plumbing.EncodedObject) (Object, error) {
	storer := memory.NewStorage()
	decoded, err := object.DecodeObject(storer, enc)
	if err != nil {
		return Object{}, fmt.Errorf("gitobj: decode object %s: %w", oid, err)
	}

	switch o := decoded.(type) {
	case *object.Commit:
		parents := make([]string, len(o.ParentHashes))
		for i, h := range o.ParentHashes {
			parents[i] = h.String()
		}
		return Object{OID: oid, Kind: KindCommit, TreeOID: o.TreeHash.String(), ParentOIDs: parents}, nil
	case *object.Tree:
		entries := make([]string, len(o.Entries))
		for i, e := range o.Entries {
			entries[i] = e.Hash.String()
		}
		return Object{OID: oid, Kind: KindTree, EntryOIDs: entries}, nil
	case *object.Blob:
		return Object{OID: oid, Kind: KindBlob}, nil
	case *object.Tag:
		return Object{OID: oid, Kind: KindTag, TargetOID: o.Target.String()}, nil
	default:
		return Object{}, fmt.Errorf("%w: %T", ErrUnknownKind, decoded)
	}
}
