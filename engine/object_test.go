package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDefinitions() []ResourceDef {
	return []ResourceDef{
		{ID: 0, Kind: KindInt, Readable: true, Writable: true},
		{ID: 1, Kind: KindInt, Readable: true, Writable: true},
	}
}

func TestNewObjectAllocatesParallelValueSlices(t *testing.T) {
	object := NewObject(1, "/1", testDefinitions(), 3)
	assert.Len(t, object.Instances, 3)
	for _, inst := range object.Instances {
		assert.Len(t, inst.Values, len(object.Definitions))
		assert.False(t, inst.Used)
	}
}

func TestObjectDefinitionLookup(t *testing.T) {
	object := NewObject(1, "/1", testDefinitions(), 1)
	def := object.Definition(1)
	assert.NotNil(t, def)
	assert.Equal(t, uint16(1), def.ID)

	assert.Nil(t, object.Definition(99))
}

func TestObjectInstanceResolution(t *testing.T) {
	object := NewObject(1, "/1", testDefinitions(), 2)
	assert.Equal(t, -1, object.FirstUsedInstance())
	assert.Equal(t, 0, object.FirstFreeSlot())

	object.Instances[0] = Instance{ID: 7, Used: true, Values: make([]ResourceValue, 2)}
	assert.Equal(t, 0, object.FirstUsedInstance())
	assert.Equal(t, 0, object.FindInstance(7))
	assert.Equal(t, -1, object.FindInstance(8))
	assert.Equal(t, 1, object.FirstFreeSlot())

	object.Instances[1] = Instance{ID: 9, Used: true, Values: make([]ResourceValue, 2)}
	assert.Equal(t, -1, object.FirstFreeSlot())
}

func TestResourceKindString(t *testing.T) {
	assert.Equal(t, "callback", KindCallback.String())
	assert.Equal(t, "unknown", ResourceKind(99).String())
}
