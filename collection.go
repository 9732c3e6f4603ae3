package deltastate

import (
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Collections is state shaped as { collection: { entity id: entity } }
type Collections map[string]map[string]interface{}

// EntityFunc receives an entity id & the entity
type EntityFunc func(id string, entity interface{})

// StateFunc receives a whole collection
type StateFunc func(collection map[string]interface{})

// CollectionContainer tracks membership of fixed collections of entities. It
// reports which entity ids appeared or disappeared between snapshots and
// never looks inside an entity.
//
// Collection names are taken from the initial snapshot and never change
type CollectionContainer struct {
	data  Collections
	names []string

	create map[string]EntityFunc
	remove map[string]EntityFunc
	state  map[string]StateFunc
}

// NewCollectionContainer creates a container from an initial snapshot
func NewCollectionContainer(data Collections) *CollectionContainer {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &CollectionContainer{data: data, names: names}
	c.RemoveAllListeners()
	return c
}

// Data returns the current snapshot
func (c *CollectionContainer) Data() Collections {
	return c.data
}

// Names lists the tracked collection names in sorted order
func (c *CollectionContainer) Names() []string {
	return append([]string(nil), c.names...)
}

// AddCreateListener sets the callback for entities new to a collection,
// replacing any previous one
func (c *CollectionContainer) AddCreateListener(collection string, fn EntityFunc) {
	c.create[collection] = fn
}

// AddRemoveListener sets the callback for entities gone from a collection,
// replacing any previous one. it receives the entity from the old snapshot
func (c *CollectionContainer) AddRemoveListener(collection string, fn EntityFunc) {
	c.remove[collection] = fn
}

// AddStateListener sets the callback that receives the whole new collection
// on every Set, whether or not it changed
func (c *CollectionContainer) AddStateListener(collection string, fn StateFunc) {
	c.state[collection] = fn
}

// RemoveAllListeners drops every callback
func (c *CollectionContainer) RemoveAllListeners() {
	c.create = map[string]EntityFunc{}
	c.remove = map[string]EntityFunc{}
	c.state = map[string]StateFunc{}
}

// Set compares membership of every tracked collection & calls the create,
// remove and state callbacks in that order per collection. A tracked
// collection missing from newData counts as empty, collections not present at
// construction are ignored
func (c *CollectionContainer) Set(newData Collections) {
	for _, name := range c.names {
		prior := c.data[name]
		latest := newData[name]

		added := false
		create := c.create[name]
		for _, id := range sortedIDs(latest) {
			if _, ok := prior[id]; ok {
				continue
			}
			added = true
			if create != nil {
				create(id, latest[id])
			}
		}

		// nothing new & equal sizes means nothing left either
		if added || len(latest) != len(prior) {
			if fn := c.remove[name]; fn != nil {
				for _, id := range sortedIDs(prior) {
					if _, ok := latest[id]; !ok {
						fn(id, prior[id])
					}
				}
			}
		}

		if fn := c.state[name]; fn != nil {
			fn(latest)
		}
	}
	c.data = newData
}

func sortedIDs(entities map[string]interface{}) []string {
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DecodeEntity decodes a JSON-shaped entity into out, which must be a pointer.
// struct fields are matched using their json tags
func DecodeEntity(entity interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(entity)
}
