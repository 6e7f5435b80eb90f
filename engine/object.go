// Package engine implements the OMA LWM2M object registry, URI dispatch,
// value codecs and registration/bootstrap state machine described by
// OMA-TS-LightweightM2M-V1_0_2-20180209-A. It has no knowledge of any
// concrete object (Security, Server, Device, IPSO Power Control, ...):
// those are built by callers on top of the types in this file and
// registered with an Engine.
package engine

// ResourceKind tags the value a Resource carries. The source this engine
// is modeled on dispatches on resource->type and then on which of
// {read, write, exec} is non-nil; here the tag is explicit so the
// dispatcher can switch on it directly instead of inferring it from
// which callback pointers happen to be set.
type ResourceKind int

const (
	KindString ResourceKind = iota
	KindInt
	KindFloatFix
	KindBoolean
	KindCallback
)

func (k ResourceKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloatFix:
		return "floatfix"
	case KindBoolean:
		return "boolean"
	case KindCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// CallbackFunc is the shape shared by the read, write and exec members of
// a callback triple. For read it fills out and returns the number of
// bytes produced; for write/exec it consumes in and returns the number of
// bytes it accepted. Zero means failure, matching the spec's 0-length
// error convention for encoders and callbacks alike.
type CallbackFunc func(ctx *Context, in []byte, out []byte) int

// Callback is the read/write/exec triple of a CALLBACK resource. Any
// member may be nil.
type Callback struct {
	Read  CallbackFunc
	Write CallbackFunc
	Exec  CallbackFunc
}

// ResourceDef is the shared, per-object declaration of a resource: its id,
// kind, access flags and (for CALLBACK resources) its triple. It does not
// carry a value; Value-kind storage lives per-instance in Instance.Values,
// at the same index as the owning Object's Definitions slice.
type ResourceDef struct {
	ID         uint16
	Kind       ResourceKind
	Readable   bool
	Writable   bool
	Executable bool
	Callback   Callback
}

// ResourceValue is the tagged-variant storage for one Value-kind resource
// inside one Instance. Only the field matching the owning ResourceDef's
// Kind is meaningful.
type ResourceValue struct {
	Str   string
	Int   int64
	Fixed int32 // floatfix raw fixed-point integer, width carried by the codec call
	Bool  bool
}

// Instance is one slot in an Object's fixed-size instance array. Used is
// the USED flag from the spec's data model; an unused slot's ID and
// Values are meaningless leftovers from a prior occupant or the zero
// value, never read.
type Instance struct {
	ID     uint16
	Used   bool
	Values []ResourceValue // parallel to the owning Object's Definitions
}

// Object is a statically declared, once-registered LWM2M object: a 16-bit
// id, a shared resource definition table, and a fixed-size array of
// instance slots. The slot count is fixed at construction (NewObject) and
// never grows; "index-based identity" per the design this engine follows
// means an instance's position in Instances is as much its identity as
// its ID field.
type Object struct {
	ID          uint16
	Path        string
	Definitions []ResourceDef
	Instances   []Instance

	// OnInstanceCreated and OnInstanceDeleted, when set, let an object
	// implementation that keeps its own per-slot state outside Instance
	// (PowerControl's on/off and on-time bookkeeping, for instance) stay in
	// sync with slots the dispatcher creates or frees generically: without
	// this hook a slot reused after a DELETE would carry forward whatever
	// state its previous occupant left behind.
	OnInstanceCreated func(slot int)
	OnInstanceDeleted func(slot int)
}

// NewObject allocates an Object with maxInstances empty (unused) slots.
func NewObject(id uint16, path string, definitions []ResourceDef, maxInstances int) *Object {
	instances := make([]Instance, maxInstances)
	for i := range instances {
		instances[i].Values = make([]ResourceValue, len(definitions))
	}
	return &Object{ID: id, Path: path, Definitions: definitions, Instances: instances}
}

// Definition returns the ResourceDef for id, or nil if this object
// declares no such resource.
func (o *Object) Definition(id uint16) *ResourceDef {
	for i := range o.Definitions {
		if o.Definitions[i].ID == id {
			return &o.Definitions[i]
		}
	}
	return nil
}

// FirstUsedInstance returns the index of the first USED slot, or -1 if
// the object currently has no instances.
func (o *Object) FirstUsedInstance() int {
	for i := range o.Instances {
		if o.Instances[i].Used {
			return i
		}
	}
	return -1
}

// FindInstance returns the slot index whose ID equals instanceID and
// whose USED flag is set, or -1 if none matches.
func (o *Object) FindInstance(instanceID uint16) int {
	for i := range o.Instances {
		if o.Instances[i].Used && o.Instances[i].ID == instanceID {
			return i
		}
	}
	return -1
}

// FirstFreeSlot returns the lowest-indexed unused slot, or -1 if the
// object's instance array is full. §4.4's instance-creation tie-break
// ("lowest-indexed free slot") depends on this scanning in order.
func (o *Object) FirstFreeSlot() int {
	for i := range o.Instances {
		if !o.Instances[i].Used {
			return i
		}
	}
	return -1
}
