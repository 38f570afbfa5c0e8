package types

// IsDerivedFrom reports whether t is base or inherits from it. The chain is
// walked one ResolveBase step at a time; an expired link before base is
// found is returned as an error.
func IsDerivedFrom(t, base *Type) (bool, error) {
	for cur := t; cur != nil; {
		if cur == base {
			return true, nil
		}
		next, err := cur.ResolveBase()
		if err != nil {
			return false, err
		}
		cur = next
	}
	return false, nil
}

// LookupFunction finds name on t or the nearest base declaring it, and
// returns the function with the type it was found on.
func LookupFunction(t *Type, name string) (*Function, *Type, error) {
	for cur := t; cur != nil; {
		if fn, ok := cur.Function(name); ok {
			return fn, cur, nil
		}
		next, err := cur.ResolveBase()
		if err != nil {
			return nil, nil, err
		}
		cur = next
	}
	return nil, nil, nil
}

// Chain returns t followed by each resolvable ancestor. It stops at the
// first expired link and returns the error alongside the prefix walked.
func Chain(t *Type) ([]*Type, error) {
	var out []*Type
	for cur := t; cur != nil; {
		out = append(out, cur)
		next, err := cur.ResolveBase()
		if err != nil {
			return out, err
		}
		cur = next
	}
	return out, nil
}

// LookupProperty finds name on t or the nearest base declaring it.
func LookupProperty(t *Type, name string) (Property, *Type, error) {
	for cur := t; cur != nil; {
		if p, ok := cur.Property(name); ok {
			return p, cur, nil
		}
		next, err := cur.ResolveBase()
		if err != nil {
			return Property{}, nil, err
		}
		cur = next
	}
	return Property{}, nil, nil
}
