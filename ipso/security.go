package ipso

import "github.com/nfi/contiki-lwm2m/engine"

// SecurityObjectID is the LWM2M Security object id, 0. Once registered,
// its used instances are listed in the registration payload like those of
// every other registered object; engine.Client.registrationPayload makes
// no exclusion for it.
const SecurityObjectID = 0

// Security object resource ids (OMA-TS-LightweightM2M-V1_0_2 §E.1).
const (
	ResourceServerURI     = 0
	ResourceBootstrap     = 1
	ResourceIdentity      = 3
	ResourceSecretKey     = 5
	ResourceShortServerID = 10
)

// NewSecurity builds an empty Security object with room for maxInstances
// server credential sets (a bootstrap server plus zero or more
// registration servers).
func NewSecurity(maxInstances int) *engine.Object {
	defs := []engine.ResourceDef{
		{ID: ResourceServerURI, Kind: engine.KindString, Readable: true, Writable: true},
		{ID: ResourceBootstrap, Kind: engine.KindBoolean, Readable: true, Writable: true},
		{ID: ResourceIdentity, Kind: engine.KindString, Readable: true, Writable: true},
		{ID: ResourceSecretKey, Kind: engine.KindString, Readable: true, Writable: true},
		{ID: ResourceShortServerID, Kind: engine.KindInt, Readable: true, Writable: true},
	}
	return engine.NewObject(SecurityObjectID, "/0", defs, maxInstances)
}

// AddInstance creates a new Security credential set at the lowest free
// slot and returns its slot index.
func AddSecurityInstance(object *engine.Object, id uint16, uri string, isBootstrap bool, identity, secretKey string, shortServerID int64) (int, error) {
	slot := object.FirstFreeSlot()
	if slot < 0 {
		return -1, errNoFreeSlot(SecurityObjectID)
	}
	values := make([]engine.ResourceValue, len(object.Definitions))
	values[definitionIndex(object, ResourceServerURI)].Str = uri
	values[definitionIndex(object, ResourceBootstrap)].Bool = isBootstrap
	values[definitionIndex(object, ResourceIdentity)].Str = identity
	values[definitionIndex(object, ResourceSecretKey)].Str = secretKey
	values[definitionIndex(object, ResourceShortServerID)].Int = shortServerID
	object.Instances[slot] = engine.Instance{ID: id, Used: true, Values: values}
	return slot, nil
}

func definitionIndex(object *engine.Object, id uint16) int {
	for i, def := range object.Definitions {
		if def.ID == id {
			return i
		}
	}
	return -1
}
