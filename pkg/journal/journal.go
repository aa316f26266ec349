// Package journal records every edit made to a pkg/editlayer.EditLayer as
// an undoable Command, per spec.md §4.5. Commands carry both their forward
// delta and the inverse state needed to undo, so Undo/Redo never need to
// recompute anything from the MapModel — they just replay state that was
// captured at Apply time.
package journal

import (
	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
)

// Command is one reversible edit to an EditLayer.
type Command interface {
	Apply(layer *editlayer.EditLayer)
	Invert() Command
}

// Journal is the totally-ordered edit history for one project session.
// Any new command clears Redo, matching the standard undo/redo contract.
type Journal struct {
	Undo []Command
	Redo []Command
}

// New returns an empty Journal.
func New() *Journal {
	return &Journal{}
}

// Do applies cmd to layer, pushes it onto Undo, and clears Redo.
func (j *Journal) Do(layer *editlayer.EditLayer, cmd Command) {
	cmd.Apply(layer)
	j.Undo = append(j.Undo, cmd)
	j.Redo = nil
}

// UndoLast pops the most recent command, applies its inverse, and pushes
// the original onto Redo. Fails JournalEmpty if there is nothing to undo.
func (j *Journal) UndoLast(layer *editlayer.EditLayer) error {
	if len(j.Undo) == 0 {
		return ltnerr.New(ltnerr.JournalEmpty, "nothing to undo")
	}
	n := len(j.Undo) - 1
	cmd := j.Undo[n]
	j.Undo = j.Undo[:n]
	cmd.Invert().Apply(layer)
	j.Redo = append(j.Redo, cmd)
	return nil
}

// RedoLast pops the most recently undone command, re-applies it, and
// pushes it back onto Undo. Fails JournalEmpty if there is nothing to redo.
func (j *Journal) RedoLast(layer *editlayer.EditLayer) error {
	if len(j.Redo) == 0 {
		return ltnerr.New(ltnerr.JournalEmpty, "nothing to redo")
	}
	n := len(j.Redo) - 1
	cmd := j.Redo[n]
	j.Redo = j.Redo[:n]
	cmd.Apply(layer)
	j.Undo = append(j.Undo, cmd)
	return nil
}

// UndoLength and RedoLength feed renderNeighbourhood's global undo_length /
// redo_length counters (spec.md §6).
func (j *Journal) UndoLength() int { return len(j.Undo) }
func (j *Journal) RedoLength() int { return len(j.Redo) }

// batchCommand applies a group of commands atomically, used by
// AddManyModalFilters so either every placement in a drawn line succeeds
// or none of them do (spec.md §4.5).
type batchCommand struct {
	cmds []Command
}

func (b *batchCommand) Apply(layer *editlayer.EditLayer) {
	for _, c := range b.cmds {
		c.Apply(layer)
	}
}

func (b *batchCommand) Invert() Command {
	inverted := make([]Command, len(b.cmds))
	for i, c := range b.cmds {
		inverted[len(b.cmds)-1-i] = c.Invert()
	}
	return &batchCommand{cmds: inverted}
}
