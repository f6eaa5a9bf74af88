package gen

import (
	"github.com/cheekybits/genny/generic"
)

//go:generate genny -in=$GOFILE -out=../drivers/cryptodrv/owner_stack_dl.go -pkg=cryptodrv gen "Generic=OwnerContext"

type Generic generic.Type

type GenericNodeDL struct {
	prev  *GenericNodeDL
	next  *GenericNodeDL
	value *Generic
}

// GenericDoublyLinkedList implements a doubly linked list
// that is not concurrent safe.  Nodes can be embedded in the values they
// point at, so pushing and removing never allocates.
type GenericDoublyLinkedList struct {
	first *GenericNodeDL
	last  *GenericNodeDL
}

// NewGenericNodeDL returns a node holding v, not yet in any list.
func NewGenericNodeDL(v *Generic) GenericNodeDL {
	return GenericNodeDL{value: v}
}

// Next returns the next element of the list.  Returns nil for the last node
// in the list.
func (g *GenericNodeDL) Next() *GenericNodeDL {
	return g.next
}

// Prev returns the previous element of the list.  Returns nil for the first
// node in the list.
func (g *GenericNodeDL) Prev() *GenericNodeDL {
	return g.prev
}

// Value returns the element's value.
func (g *GenericNodeDL) Value() *Generic {
	return g.value
}

// SetValue points the node at v.  Only legal while the node is unlinked.
func (g *GenericNodeDL) SetValue(v *Generic) {
	if g.next != nil || g.prev != nil {
		panic("attempt to change the value of a linked node (SetValue)")
	}
	g.value = v
}

// NewGenericDoublyLinkedList returns an empty doubly linked list.
// Note: It returns a value, not a pointer but the methods have
// pointer receivers.
func NewGenericDoublyLinkedList() GenericDoublyLinkedList {
	return GenericDoublyLinkedList{first: nil, last: nil}
}

// Empty returns true if the list is empty.
func (g *GenericDoublyLinkedList) Empty() bool {
	if g.first == nil {
		if g.last != nil {
			panic("invariant violated checking for Empty")
		}
		return true
	}
	return false
}

// Length returns the number of elements in the list.  This
// requires walking the list.
func (g *GenericDoublyLinkedList) Length() int {
	l := 0
	if err := g.TraverseNodesGeneric(func(_ *GenericNodeDL) error { l++; return nil }); err != nil {
		panic("unable to compute size due to error in traversal:" + err.Error())
	}
	return l
}

// First returns the first node in the list or a nil if the list is empty.
func (g *GenericDoublyLinkedList) First() *GenericNodeDL {
	if g.first == nil {
		if g.last != nil {
			panic("invariant violated getting First()")
		}
		return nil
	}
	if g.first.prev != nil {
		panic("invariant of first node violated (First())")
	}
	return g.first
}

// Last returns the last node in the list or a nil if the list is empty.
func (g *GenericDoublyLinkedList) Last() *GenericNodeDL {
	if g.last == nil {
		if g.first != nil {
			panic("invariant violated getting Last()")
		}
		return nil
	}
	if g.last.next != nil {
		panic("invariant of last node violated (Last())")
	}
	return g.last
}

// Contains reports whether n is linked into this list.
func (g *GenericDoublyLinkedList) Contains(n *GenericNodeDL) bool {
	for curr := g.first; curr != nil; curr = curr.next {
		if curr == n {
			return true
		}
	}
	return false
}

// PushNode inserts the given node at the front of the list.
// Traversals that start at the front will see the newly
// pushed node first.  Returns the newly modified list.
func (g *GenericDoublyLinkedList) PushNode(n *GenericNodeDL) *GenericDoublyLinkedList {
	if n.next != nil || n.prev != nil || g.first == n {
		panic("attempt to push node that is likely a member of " +
			"another list (PushNode)")
	}
	if g.first == nil {
		if g.last != nil {
			panic("invariant of empty list is broken (push)")
		}
		g.first = n
		g.last = n
		return g
	}
	old := g.first
	if old.prev != nil {
		panic("invariant of first node of list is broken (push)")
	}
	g.first = n
	old.prev = n
	n.next = old
	n.prev = nil
	return g
}

// AppendNode inserts the given value at the end of the list.  Traversals
// that start at the front will see the newly pushed node last.
// Returns the newly modified list.  If Next() or Prev() of the new node
// are not nil, it panics.
func (g *GenericDoublyLinkedList) AppendNode(n *GenericNodeDL) *GenericDoublyLinkedList {
	if n.next != nil || n.prev != nil || g.last == n {
		panic("attempt to insert node that is likely a member of " +
			"another list (AppendNode)")
	}
	if g.last == nil {
		if g.first != nil {
			panic("invariant of empty list is broken (AppendNode)")
		}
		g.first = n
		g.last = n
		return g
	}
	old := g.last
	if old.next != nil {
		panic("invariant of last node of list is broken (AppendNode)")
	}
	g.last = n
	old.next = n
	n.prev = old
	n.next = nil
	return g
}

// TraverseNodesGeneric walks all the nodes in the list, in order, starting
// at the front.  It is ok to modify elements that are "behind" the current
// node in the iteration.  If the iteration function returns an error,
// the traversal is halted and that error is returned.
func (g *GenericDoublyLinkedList) TraverseNodesGeneric(fn func(v *GenericNodeDL) error) error {
	curr := g.first
	for curr != nil {
		next := curr.next
		err := fn(curr)
		if err != nil {
			return err
		}
		curr = next
	}
	return nil
}

// TraverseGeneric walks all the items in the list, in order, starting at the
// front. This passes the _value_ of each node to the function supplied.
func (g *GenericDoublyLinkedList) TraverseGeneric(fn func(v *Generic) error) error {
	return g.TraverseNodesGeneric(func(n *GenericNodeDL) error {
		return fn(n.value)
	})
}

// TraverseBackwardsGeneric walks all the _values_ in the list, in reverse
// order, starting at the last element.
func (g *GenericDoublyLinkedList) TraverseBackwardsGeneric(fn func(v *Generic) error) error {
	curr := g.last
	for curr != nil {
		prev := curr.prev
		err := fn(curr.value)
		if err != nil {
			return err
		}
		curr = prev
	}
	return nil
}

// Remove takes a node out of the list, wherever it is.
func (g *GenericDoublyLinkedList) Remove(n *GenericNodeDL) {
	if n.prev == nil {
		if g.first != n {
			panic("invariant of removing first element violated")
		}
		g.first = n.next
	} else {
		if n.prev.next != n {
			panic("invariant violated with intermediate node (Remove)")
		}
		n.prev.next = n.next
	}
	if n.next == nil {
		if g.last != n {
			panic("invariant of removing last element violated")
		}
		g.last = n.prev
	} else {
		n.next.prev = n.prev
	}
	n.next = nil
	n.prev = nil
}

// InsertBefore takes in the node before which to insert the second
// parameter.  It is permitted to give nil as the value of target and this
// makes this function perform AppendNode().
func (g *GenericDoublyLinkedList) InsertBefore(target *GenericNodeDL,
	n *GenericNodeDL) {

	if target == nil {
		g.AppendNode(n)
		return
	}
	prev := target.prev
	if prev == nil {
		if g.first != target {
			panic("invariant violated with first element (InsertBefore)")
		}
		g.PushNode(n)
		return
	}
	if prev.next != target {
		panic("invariant violated with intermediate node (InsertBefore)")
	}
	prev.next = n
	n.prev = prev
	target.prev = n
	n.next = target
}

// InsertAfter takes in the node after which to insert the second
// parameter.  It is permitted to give nil as the value of target and this
// makes this function perform PushNode().
func (g *GenericDoublyLinkedList) InsertAfter(target *GenericNodeDL,
	n *GenericNodeDL) {

	if target == nil {
		g.PushNode(n)
		return
	}
	next := target.next
	if next == nil {
		if g.last != target {
			panic("invariant violated with last element (InsertAfter)")
		}
		g.AppendNode(n)
		return
	}
	if next.prev != target {
		panic("invariant violated with intermediate node (InsertAfter)")
	}
	next.prev = n
	n.next = next
	n.prev = target
	target.next = n
}

// Pop is a shorthand for Remove(First()) and it returns the removed
// node, or nil on an empty list.
func (g *GenericDoublyLinkedList) Pop() *GenericNodeDL {
	f := g.First()
	if f != nil {
		g.Remove(f)
	}
	return f
}

// Dequeue is a shorthand for Remove(Last()) and it returns the removed
// node, or nil on an empty list.
func (g *GenericDoublyLinkedList) Dequeue() *GenericNodeDL {
	f := g.Last()
	if f != nil {
		g.Remove(f)
	}
	return f
}
