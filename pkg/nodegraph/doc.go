// Package nodegraph is the visual side of a model: vertices with ports,
// connections between ports, per-port locks and vertex positions.
//
// # Vertices
//
// A [Vertex] is one of three kinds, chosen with [Kind] when it is created
// through [Graph.AddVertex]:
//
//   - [KindInput] carries the graph input tensor and one output port.
//   - [KindOutput] carries the graph output tensor and one input port.
//   - [KindOperator] carries an operator type, its ordered attributes and
//     its ordered input and output tensors, with one input port ("in") and
//     one output port ("out").
//
// Constant-producing operators ("Constant", "ConstantOfShape") have their
// input port removed after creation; [Vertex.SetPortDeletionAllowed] opens
// that window and [Graph.DeleteInputPort] performs the removal.
//
// Every vertex has a stable UUID and a display name that is unique within
// its graph. Clashing names get a numeric suffix ("Relu", "Relu 1", ...).
//
// # Ports and Locks
//
// Ports are either [Unlocked] or [Locked]. A locked port rejects any
// structural change (connect, disconnect, vertex removal) with
// [ErrPortLocked] and leaves the graph untouched. Lock state only changes
// through [Graph.SetLocked], [Graph.LockAll] and [Graph.UnlockAll].
//
// # Undo
//
// Mutating methods take a record flag. When it is true the change is pushed
// to the graph's [undo.Recorder] as a reversible command.
// [Graph.BeginGroup] and [Graph.EndGroup] bracket several changes into one
// undo step.
//
// # Sessions
//
// [Marshal] and [Unmarshal] store a graph, including positions, lock states
// and connections, as JSON.
//
// A Graph is not safe for concurrent use.
package nodegraph
