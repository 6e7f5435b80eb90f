// Package ipso implements the concrete LWM2M objects this client exposes:
// IPSO Power Control plus the bootstrap-carried Security and Server
// objects and a minimal Device object. None of engine imports this
// package; objects declared here are built by a caller and handed to
// engine.Registry.Register.
package ipso

import "github.com/nfi/contiki-lwm2m/engine"

// PowerControlObjectID is the IPSO Power Control object id, 3312.
const PowerControlObjectID = 3312

const (
	resourceOnOff  = 5850
	resourceOnTime = 5852
)

type powerState struct {
	lastOnTime  int64
	totalOnTime int64
	isOn        bool
}

// PowerControl is the IPSO Power Control object: an on/off switch
// (resource 5850) and its cumulative on-time counter (resource 5852, a
// write-0-to-reset counter), one power_state per instance.
type PowerControl struct {
	Object *engine.Object
	clock  engine.Clock
	states []powerState
}

// NewPowerControl builds an empty Power Control object with room for
// maxInstances plugs.
func NewPowerControl(clock engine.Clock, maxInstances int) *PowerControl {
	pc := &PowerControl{clock: clock, states: make([]powerState, maxInstances)}
	defs := []engine.ResourceDef{
		{
			ID: resourceOnOff, Kind: engine.KindCallback, Readable: true, Writable: true,
			Callback: engine.Callback{Read: pc.readState, Write: pc.writeState},
		},
		{
			ID: resourceOnTime, Kind: engine.KindCallback, Readable: true, Writable: true,
			Callback: engine.Callback{Read: pc.readOnTime, Write: pc.writeOnTime},
		},
	}
	pc.Object = engine.NewObject(PowerControlObjectID, "/3312", defs, maxInstances)
	pc.Object.OnInstanceCreated = func(slot int) { pc.states[slot] = powerState{} }
	pc.Object.OnInstanceDeleted = func(slot int) { pc.states[slot] = powerState{} }
	return pc
}

// AddInstance creates a new power-controlled instance with the given id,
// starting off, at the lowest free slot. A POST auto-create through the
// dispatcher reaches the same powerState reset via Object.OnInstanceCreated;
// this is the path config-driven startup uses to pre-populate instances.
func (pc *PowerControl) AddInstance(id uint16) (int, error) {
	slot := pc.Object.FirstFreeSlot()
	if slot < 0 {
		return -1, errNoFreeSlot(PowerControlObjectID)
	}
	pc.Object.Instances[slot] = engine.Instance{ID: id, Used: true, Values: make([]engine.ResourceValue, len(pc.Object.Definitions))}
	pc.Object.OnInstanceCreated(slot)
	return slot, nil
}

func (pc *PowerControl) readState(ctx *engine.Context, in, out []byte) int {
	idx := ctx.InstanceIdx
	if idx < 0 || idx >= len(pc.states) {
		return 0
	}
	return copy(out, encodeBool(ctx.Writer, resourceOnOff, pc.states[idx].isOn))
}

func (pc *PowerControl) writeState(ctx *engine.Context, in, out []byte) int {
	idx := ctx.InstanceIdx
	if idx < 0 || idx >= len(pc.states) {
		return 0
	}
	value, ok := decodeBool(ctx.Reader, in)
	if !ok {
		return 0
	}

	state := &pc.states[idx]
	if value {
		if !state.isOn {
			state.isOn = true
			state.lastOnTime = pc.clock.Seconds()
		}
	} else if state.isOn {
		state.totalOnTime += pc.clock.Seconds() - state.lastOnTime
		state.isOn = false
	}
	return 1
}

func (pc *PowerControl) readOnTime(ctx *engine.Context, in, out []byte) int {
	idx := ctx.InstanceIdx
	if idx < 0 || idx >= len(pc.states) {
		return 0
	}
	state := &pc.states[idx]
	if state.isOn {
		now := pc.clock.Seconds()
		state.totalOnTime += now - state.lastOnTime
		state.lastOnTime = now
	}
	return copy(out, encodeInt(ctx.Writer, resourceOnTime, state.totalOnTime))
}

// writeOnTime resets the counter when the written value is 0 and leaves
// it untouched otherwise - a write that parses but whose value is
// non-zero is acknowledged without effect, matching the write-to-reset
// convention this follows.
func (pc *PowerControl) writeOnTime(ctx *engine.Context, in, out []byte) int {
	idx := ctx.InstanceIdx
	if idx < 0 || idx >= len(pc.states) {
		return 0
	}
	value, ok := decodeInt(ctx.Reader, in)
	if !ok {
		return 0
	}

	state := &pc.states[idx]
	if value == 0 {
		state.totalOnTime = 0
		if state.isOn {
			state.lastOnTime = pc.clock.Seconds()
		}
	}
	return 1
}
