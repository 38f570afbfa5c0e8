// Package vm implements execution contexts: isolated call stacks that
// functions are invoked against.
//
// Call validates arguments before touching the stack, runs the function
// inside a fresh frame and leaves the stack exactly as it found it. The
// result is handed back to the caller instead of being left on the stack.
//
// Implementations reach the calling context through FromContext, which
// lets a native function issue nested calls on the same stack. Top-level
// calls on one context are serialized; nested calls made with the ctx an
// implementation received run inside the caller's turn.
package vm
