package ipso

import "github.com/nfi/contiki-lwm2m/engine"

// ServerObjectID is the LWM2M Server object id, 1.
const ServerObjectID = 1

// Server object resource ids (OMA-TS-LightweightM2M-V1_0_2 §E.2).
const (
	ResourceServerShortServerID = 0
	ResourceLifetime            = 1
)

// NewServer builds an empty Server object with room for maxInstances
// registered servers.
func NewServer(maxInstances int) *engine.Object {
	defs := []engine.ResourceDef{
		{ID: ResourceServerShortServerID, Kind: engine.KindInt, Readable: true, Writable: true},
		{ID: ResourceLifetime, Kind: engine.KindInt, Readable: true, Writable: true},
	}
	return engine.NewObject(ServerObjectID, "/1", defs, maxInstances)
}

// AddServerInstance creates a new Server entry at the lowest free slot.
func AddServerInstance(object *engine.Object, id uint16, shortServerID, lifetime int64) (int, error) {
	slot := object.FirstFreeSlot()
	if slot < 0 {
		return -1, errNoFreeSlot(ServerObjectID)
	}
	values := make([]engine.ResourceValue, len(object.Definitions))
	values[definitionIndex(object, ResourceServerShortServerID)].Int = shortServerID
	values[definitionIndex(object, ResourceLifetime)].Int = lifetime
	object.Instances[slot] = engine.Instance{ID: id, Used: true, Values: values}
	return slot, nil
}
