// Package types implements reflective type descriptors.
//
// A Type describes a named type: its optional base, its properties, its
// functions and its attributes. Types live in an Arena owned by the
// runtime; modules insert them and remove them, and nothing else holds them
// strongly. Everything else refers to a Type through a Ref, a weak handle
// that stops resolving the moment the owning module releases the type.
//
//	ref := t.Ref()
//	if t, ok := ref.Resolve(); ok {
//	    fmt.Println(t.FullName())
//	}
//
// Base links are walked one step at a time. ResolveBase never recurses, so a
// broken link at any depth fails where it is found:
//
//	for t != nil {
//	    visit(t)
//	    t, err = t.ResolveBase()
//	    if err != nil {
//	        return err // base module was unloaded
//	    }
//	}
//
// IsDerivedFrom and LookupFunction are helpers that perform this walk.
package types
