package gitobj

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Commit(t *testing.T) {
	obj := Object{
		Kind:       KindCommit,
		TreeOID:    "tree1",
		ParentOIDs: []string{"p1", "p2"},
	}
	refs, err := Extract(obj)
	assert.NoError(t, err)
	assert.Equal(t, []string{"tree1", "p1", "p2"}, refs)
}

func TestExtract_CommitNoParents(t *testing.T) {
	obj := Object{Kind: KindCommit, TreeOID: "tree1"}
	refs, err := Extract(obj)
	assert.NoError(t, err)
	assert.Equal(t, []string{"tree1"}, refs)
}

func TestExtract_Tree(t *testing.T) {
	obj := Object{Kind: KindTree, EntryOIDs: []string{"a", "b", "c"}}
	refs, err := Extract(obj)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, refs)
}

func TestExtract_Blob(t *testing.T) {
	refs, err := Extract(Object{Kind: KindBlob})
	assert.NoError(t, err)
	assert.Empty(t, refs)
}

func TestExtract_Tag(t *testing.T) {
	refs, err := Extract(Object{Kind: KindTag, TargetOID: "t1"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"t1"}, refs)
}

func TestExtract_UnknownKindIsFatal(t *testing.T) {
	_, err := Extract(Object{Kind: Kind(99)})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}
