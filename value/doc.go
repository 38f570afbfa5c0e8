// Package value implements the dynamically-typed unit exchanged between native
// code and scripted functions.
//
// A Value is exactly one of:
//
//	empty                         Empty()
//	bool, int64, float64, string  Bool(b), Int(i), Float(f), String(s)
//	native reference              NativeOf(ptr), NativeWithID(id, ptr)
//	list of values                List(v...)
//
// Values are copied by assignment. A native reference does not own its
// referent: it holds a weak pointer, so the object may be collected while
// the value still exists. Every dereference goes through a liveness check:
//
//	v := value.NativeOf(body)
//	if b, ok := value.As[*Body](v); ok {
//	    b.Mass = 2
//	}
//
// As matches kinds exactly. An Int is never returned as float64 and a Float
// is never returned as int64; As[int] fails for every value. Comparing
// values of different kinds is never an error, they are simply not equal.
package value
