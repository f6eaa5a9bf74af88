package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeNodes(names ...string) []*GenericNodeDL {
	result := make([]*GenericNodeDL, len(names))
	for i, s := range names {
		v := Generic(s)
		n := NewGenericNodeDL(&v)
		result[i] = &n
	}
	return result
}

func values(t *testing.T, g *GenericDoublyLinkedList) []string {
	t.Helper()
	var result []string
	require.NoError(t, g.TraverseGeneric(func(v *Generic) error {
		result = append(result, (*v).(string))
		return nil
	}))
	return result
}

func TestBasics(t *testing.T) {
	g := NewGenericDoublyLinkedList()
	assert.True(t, g.Empty())
	assert.Equal(t, 0, g.Length())
	assert.Nil(t, g.First())
	assert.Nil(t, g.Last())

	n := makeNodes("iansmith", "love will tear us apart", "the four ladies")
	g.AppendNode(n[0])
	g.AppendNode(n[1])
	g.PushNode(n[2])

	assert.False(t, g.Empty())
	assert.Equal(t, 3, g.Length())
	assert.Equal(t, []string{"the four ladies", "iansmith", "love will tear us apart"}, values(t, &g))
	assert.Equal(t, n[2], g.First())
	assert.Equal(t, n[1], g.Last())
	assert.Equal(t, n[2], g.Last().Prev().Prev())
	assert.Nil(t, g.First().Prev())
	assert.Nil(t, g.Last().Next())

	var backwards []string
	require.NoError(t, g.TraverseBackwardsGeneric(func(v *Generic) error {
		backwards = append(backwards, (*v).(string))
		return nil
	}))
	assert.Equal(t, []string{"love will tear us apart", "iansmith", "the four ladies"}, backwards)
}

func TestRemoveEveryPosition(t *testing.T) {
	for victim := 0; victim < 3; victim++ {
		g := NewGenericDoublyLinkedList()
		n := makeNodes("a", "b", "c")
		for _, node := range n {
			g.AppendNode(node)
		}
		g.Remove(n[victim])
		assert.Nil(t, n[victim].Next())
		assert.Nil(t, n[victim].Prev())
		assert.Equal(t, 2, g.Length())
		assert.False(t, g.Contains(n[victim]))

		// links must agree in both directions
		for curr := g.First(); curr != nil; curr = curr.Next() {
			if curr.Next() != nil {
				assert.Equal(t, curr, curr.Next().Prev())
			}
		}
	}

	g := NewGenericDoublyLinkedList()
	only := makeNodes("solo")[0]
	g.PushNode(only)
	g.Remove(only)
	assert.True(t, g.Empty())
}

func TestPushLinkedNodePanics(t *testing.T) {
	g := NewGenericDoublyLinkedList()
	n := makeNodes("a", "b")
	g.PushNode(n[0])
	g.PushNode(n[1])
	assert.Panics(t, func() { g.PushNode(n[0]) })
	assert.Panics(t, func() { n[0].SetValue(nil) })
}

func TestInsertAndPop(t *testing.T) {
	g := NewGenericDoublyLinkedList()
	n := makeNodes("a", "b", "c", "d", "e")
	g.InsertAfter(nil, n[1])
	g.InsertBefore(n[1], n[0])
	g.InsertAfter(n[1], n[3])
	g.InsertBefore(n[3], n[2])
	g.InsertBefore(nil, n[4])
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, values(t, &g))

	assert.Equal(t, n[0], g.Pop())
	assert.Equal(t, n[4], g.Dequeue())
	assert.Equal(t, []string{"b", "c", "d"}, values(t, &g))

	empty := NewGenericDoublyLinkedList()
	assert.Nil(t, empty.Pop())
	assert.Nil(t, empty.Dequeue())
}
