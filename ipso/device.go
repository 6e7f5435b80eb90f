package ipso

import "github.com/nfi/contiki-lwm2m/engine"

// DeviceObjectID is the LWM2M Device object id, 3.
const DeviceObjectID = 3

// Device object resource ids (OMA-TS-LightweightM2M-V1_0_2 §E.4). Only
// the subset this client exercises is declared.
const (
	ResourceManufacturer = 0
	ResourceModel         = 1
	ResourceReboot        = 4
)

// Device is a single-instance Device object exposing Manufacturer, Model
// and a Reboot executable resource that invokes a caller-supplied hook.
type Device struct {
	Object *engine.Object
}

// NewDevice builds a Device object with one instance (id 0) and the
// given manufacturer/model strings. onReboot is called when a client
// executes resource 4; it may be nil, in which case Reboot reports
// failure.
func NewDevice(manufacturer, model string, onReboot func()) *Device {
	d := &Device{}
	defs := []engine.ResourceDef{
		{ID: ResourceManufacturer, Kind: engine.KindString, Readable: true},
		{ID: ResourceModel, Kind: engine.KindString, Readable: true},
		{ID: ResourceReboot, Kind: engine.KindCallback, Executable: true, Callback: engine.Callback{
			Exec: func(ctx *engine.Context, in, out []byte) int {
				if onReboot == nil {
					return 0
				}
				onReboot()
				return 1
			},
		}},
	}
	d.Object = engine.NewObject(DeviceObjectID, "/3", defs, 1)
	d.Object.Instances[0] = engine.Instance{ID: 0, Used: true, Values: make([]engine.ResourceValue, len(defs))}
	d.Object.Instances[0].Values[definitionIndex(d.Object, ResourceManufacturer)].Str = manufacturer
	d.Object.Instances[0].Values[definitionIndex(d.Object, ResourceModel)].Str = model
	return d
}
