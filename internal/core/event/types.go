package event

// ObjectSpawned fires when an instance is materialized and registered in a map.
type ObjectSpawned struct {
	ObjectID int64
	KindID   int32
	SpawnID  int64
}

// ObjectStateChanged fires whenever an instance's activation state moves
// through the state machine; the persistence system buffers these into the
// interaction audit log.
type ObjectStateChanged struct {
	ObjectID int64
	SpawnID  int64
	State    int32 // lifecycle state the object entered
	ActorID  int64 // actor associated with the transition, 0 if none
}

// ObjectDamaged fires when a destructible structure crosses into Damaged.
type ObjectDamaged struct {
	ObjectID     int64
	InstigatorID int64
	EventID      int32
}

// ObjectDestroyed fires when a destructible structure reaches zero health.
type ObjectDestroyed struct {
	ObjectID     int64
	InstigatorID int64
	EventID      int32
}
