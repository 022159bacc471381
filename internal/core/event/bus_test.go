package event

import "testing"

func TestEmitIsDeferredOneTick(t *testing.T) {
	b := NewBus()
	var got []int64
	Subscribe(b, func(ev ObjectSpawned) { got = append(got, ev.ObjectID) })

	Emit(b, ObjectSpawned{ObjectID: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered in the tick it was emitted")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1] after the swap", got)
	}

	// the buffer is consumed: a second tick must not redeliver
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("got %v, redelivered a consumed event", got)
	}
}

func TestDispatchRoutesByType(t *testing.T) {
	b := NewBus()
	var spawns, destroys int
	Subscribe(b, func(ObjectSpawned) { spawns++ })
	Subscribe(b, func(ObjectDestroyed) { destroys++ })

	Emit(b, ObjectSpawned{ObjectID: 1})
	Emit(b, ObjectSpawned{ObjectID: 2})
	Emit(b, ObjectDestroyed{ObjectID: 3})
	b.SwapBuffers()
	b.DispatchAll()

	if spawns != 2 || destroys != 1 {
		t.Errorf("spawns = %d destroys = %d, want 2 and 1", spawns, destroys)
	}
}

func TestMultipleHandlersPerType(t *testing.T) {
	b := NewBus()
	var first, second bool
	Subscribe(b, func(ObjectStateChanged) { first = true })
	Subscribe(b, func(ObjectStateChanged) { second = true })

	Emit(b, ObjectStateChanged{ObjectID: 1})
	b.SwapBuffers()
	b.DispatchAll()
	if !first || !second {
		t.Error("every handler for the type must run")
	}
}

func TestEmitToNilBusIsSafe(t *testing.T) {
	var b *Bus
	Emit(b, ObjectSpawned{ObjectID: 1}) // must not panic
}
