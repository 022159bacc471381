package world

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stormvale/server/internal/data"
)

// testEpoch is the fixed instant every lifecycle test advances from.
var testEpoch = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

// fixedClock is a manually advanced time source.
type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time          { return c.now }
func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestMap builds a map over the given templates with a fixed clock and a
// deterministic rng.
func newTestMap(t *testing.T, tmpls ...*data.ObjectTemplate) (*Map, *fixedClock) {
	t.Helper()
	table, err := data.NewObjectTable(tmpls...)
	if err != nil {
		t.Fatalf("build object table: %v", err)
	}
	m := NewMap(1, table, zap.NewNop())
	clk := &fixedClock{now: testEpoch}
	m.Clock = clk.Now
	m.rng = rand.New(rand.NewSource(42))
	return m, clk
}

// mustSpawn places an object of the given kind on the map or fails the test.
func mustSpawn(t *testing.T, m *Map, kindID int32) *Object {
	t.Helper()
	obj, err := m.CreateObject(kindID, 0, 0, 0, [4]float64{})
	if err != nil {
		t.Fatalf("create object kind %d: %v", kindID, err)
	}
	if err := m.AddToMap(obj); err != nil {
		t.Fatalf("add to map: %v", err)
	}
	return obj
}

type sentMessage struct {
	actorID int64
	msgID   int32
}

type sentLoot struct {
	actorID int64
	kind    LootKind
}

type seatCall struct {
	actorID int64
	x, y    float64
	height  int32
}

// spyNotifier records every notification the lifecycle pushes out.
type spyNotifier struct {
	despawnAnims int
	destroys     int
	visibility   int
	forceUpdates int
	customAnims  int
	pages        []int32
	gossips      []int32
	cinematics   []int64
	messages     []sentMessage
	lootSends    []sentLoot
	seats        []seatCall
}

func (n *spyNotifier) DespawnAnim(*Object)      { n.despawnAnims++ }
func (n *spyNotifier) DestroyForNearby(*Object) { n.destroys++ }
func (n *spyNotifier) UpdateVisibility(*Object) { n.visibility++ }
func (n *spyNotifier) ForceStateUpdate(*Object) { n.forceUpdates++ }
func (n *spyNotifier) CustomAnim(*Object, uint8) {
	n.customAnims++
}
func (n *spyNotifier) ShowPage(_ int64, _ *Object, pageID int32) {
	n.pages = append(n.pages, pageID)
}
func (n *spyNotifier) ShowGossip(_ int64, _ *Object, gossipID int32) {
	n.gossips = append(n.gossips, gossipID)
}
func (n *spyNotifier) SendLoot(actorID int64, _ *Object, kind LootKind) {
	n.lootSends = append(n.lootSends, sentLoot{actorID, kind})
}
func (n *spyNotifier) Message(actorID int64, msgID int32) {
	n.messages = append(n.messages, sentMessage{actorID, msgID})
}
func (n *spyNotifier) SeatActor(actorID int64, x, y float64, height int32) {
	n.seats = append(n.seats, seatCall{actorID, x, y, height})
}
func (n *spyNotifier) StartCinematic(actorID int64, _ *Object) {
	n.cinematics = append(n.cinematics, actorID)
}

type castCall struct {
	casterObjectID   int64
	originalCasterID int64
	targetActorID    int64
	spellID          int32
}

// spyCaster records spell dispatches; err, when set, is returned from every
// cast.
type spyCaster struct {
	calls []castCall
	err   error
}

func (c *spyCaster) Cast(casterObjectID, originalCasterID, targetActorID int64, spellID int32) error {
	c.calls = append(c.calls, castCall{casterObjectID, originalCasterID, targetActorID, spellID})
	return c.err
}

// spyObjectives records battleground hook traffic.
type spyObjectives struct {
	buffs     []castCall // reuses caster/target pairing: casterObjectID=object, targetActorID=actor
	gates     []int64
	allowFlag bool
	flagUses  []int64
}

func (o *spyObjectives) TriggerBuff(objectID, actorID int64) {
	o.buffs = append(o.buffs, castCall{casterObjectID: objectID, targetActorID: actorID})
}
func (o *spyObjectives) GateDestroyed(instigatorID, objectID int64) {
	o.gates = append(o.gates, objectID)
}
func (o *spyObjectives) UseFlag(actorID int64, _ *Object, _ data.Kind) bool {
	o.flagUses = append(o.flagUses, actorID)
	return o.allowFlag
}

type endedRoll struct {
	groupID int64
	rollID  uuid.UUID
}

// spyGroups records roll terminations.
type spyGroups struct {
	endedRolls []endedRoll
}

func (g *spyGroups) EndRoll(groupID int64, rollID uuid.UUID) {
	g.endedRolls = append(g.endedRolls, endedRoll{groupID, rollID})
}
