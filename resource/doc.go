// Package resource provides generation-tagged handle tables.
//
// A Table owns the values stored in it. A Handle is a weak reference into a
// table: it names a slot and the generation the slot had when the value was
// inserted. Removing a value bumps the slot's generation, so every handle to
// it stops resolving at the moment the value is dropped. Slots are reused,
// but a reused slot carries a new generation and old handles stay dead.
//
//	table := resource.NewTable[*Descriptor]()
//
//	h, _ := table.Insert(desc)
//
//	d, ok := table.Get(h) // ok
//	table.Remove(h)       // desc.Drop() runs if it implements Dropper
//	d, ok = table.Get(h)  // !ok
//
// # Observers
//
// Observers receive lifecycle events after the table lock is released:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	    case resource.EventDropped:
//	    }
//	}))
//
// # Memory Management
//
// Values are not garbage collected out of a table. The owner must call
// Remove, RemoveAll or Close to release them.
package resource
