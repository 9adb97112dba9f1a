// Package undo records reversible edits.
//
// Editors push a [Command] for every recorded mutation. Multi-step
// operations are bracketed with [Recorder.BeginGroup] and
// [Recorder.EndGroup] so that they undo and redo as one unit. Groups may
// nest; only the outermost bracket produces an entry on the stack.
//
//	s := undo.NewStack()
//	s.BeginGroup("Auto Layout Nodes")
//	defer s.EndGroup()
//	s.Push(undo.Command{Label: "move", Undo: restore, Redo: apply})
package undo

import "errors"

// ErrUnbalancedGroup is returned by EndGroup without a matching BeginGroup.
var ErrUnbalancedGroup = errors.New("end of undo group without begin")

// Command is one reversible edit. The edit itself has already been applied
// when it is pushed.
type Command struct {
	Label string
	Undo  func()
	Redo  func()
}

// Recorder receives reversible edits.
type Recorder interface {
	BeginGroup(label string)
	EndGroup() error
	Push(cmd Command)
}

type nop struct{}

func (nop) BeginGroup(string) {}
func (nop) EndGroup() error   { return nil }
func (nop) Push(Command)      {}

// Nop returns a Recorder that discards everything.
func Nop() Recorder { return nop{} }

// entry is one undoable unit: a single command or a closed group.
type entry struct {
	label string
	cmds  []Command
}

// Stack is an in-memory undo/redo history. It is not safe for concurrent
// use.
type Stack struct {
	done   []entry
	undone []entry
	open   *entry
	depth  int
}

// NewStack returns an empty history.
func NewStack() *Stack { return &Stack{} }

// BeginGroup opens a group. Nested calls extend the outermost group.
func (s *Stack) BeginGroup(label string) {
	if s.depth == 0 {
		s.open = &entry{label: label}
	}
	s.depth++
}

// EndGroup closes the innermost group. Closing the outermost group records
// it as one entry unless it is empty.
func (s *Stack) EndGroup() error {
	if s.depth == 0 {
		return ErrUnbalancedGroup
	}
	s.depth--
	if s.depth > 0 {
		return nil
	}
	if len(s.open.cmds) > 0 {
		s.done = append(s.done, *s.open)
		s.undone = nil
	}
	s.open = nil
	return nil
}

// Push records an applied command. A new command clears the redo history.
func (s *Stack) Push(cmd Command) {
	if s.open != nil {
		s.open.cmds = append(s.open.cmds, cmd)
		return
	}
	s.done = append(s.done, entry{label: cmd.Label, cmds: []Command{cmd}})
	s.undone = nil
}

// InGroup reports whether a group is open.
func (s *Stack) InGroup() bool { return s.depth > 0 }

// Len returns the number of undoable entries.
func (s *Stack) Len() int { return len(s.done) }

// CanUndo reports whether an entry can be undone.
func (s *Stack) CanUndo() bool { return len(s.done) > 0 && s.depth == 0 }

// CanRedo reports whether an entry can be redone.
func (s *Stack) CanRedo() bool { return len(s.undone) > 0 && s.depth == 0 }

// UndoLabel returns the label of the next entry to undo.
func (s *Stack) UndoLabel() string {
	if len(s.done) == 0 {
		return ""
	}
	return s.done[len(s.done)-1].label
}

// Undo reverts the most recent entry, running its commands in reverse
// order. It returns false when there is nothing to undo or a group is open.
func (s *Stack) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	e := s.done[len(s.done)-1]
	s.done = s.done[:len(s.done)-1]
	for i := len(e.cmds) - 1; i >= 0; i-- {
		if e.cmds[i].Undo != nil {
			e.cmds[i].Undo()
		}
	}
	s.undone = append(s.undone, e)
	return true
}

// Redo reapplies the most recently undone entry.
func (s *Stack) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	e := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	for _, c := range e.cmds {
		if c.Redo != nil {
			c.Redo()
		}
	}
	s.done = append(s.done, e)
	return true
}
