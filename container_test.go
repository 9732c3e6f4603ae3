package deltastate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const containerState = `{
	"players": {"one": 1, "two": 1},
	"entity": {"x": 0, "y": 0, "z": 0, "xp": 100, "rotation": 10},
	"entities": {
		"one": {"x": 10, "y": 0},
		"two": {"x": 0, "y": 0}
	},
	"chests": {
		"one": {"items": {"one": 1}},
		"two": {"items": {"two": 1}}
	}
}`

// fixture returns a container over a fresh copy of containerState along with
// a second copy to modify & Set
func fixture(t *testing.T, opts ...Option) (*Container, map[string]interface{}) {
	t.Helper()
	var initial, data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(containerState), &initial))
	require.NoError(t, json.Unmarshal([]byte(containerState), &data))
	return New(initial, opts...), data
}

func obj(v interface{}, key string) map[string]interface{} {
	return v.(map[string]interface{})[key].(map[string]interface{})
}

func mustListen(t *testing.T, c *Container, pattern string, op Operation, cb Callback) *Listener {
	t.Helper()
	l, err := c.Listen(pattern, op, cb)
	require.NoError(t, err)
	return l
}

func fail(t *testing.T) Callback {
	return func(ch Change) {
		t.Errorf("unexpected callback: %s %v", ch.Op, ch.Path)
	}
}

func TestContainerListenAdd(t *testing.T) {
	c, data := fixture(t)

	calls := 0
	mustListen(t, c, "players", OpUnspecified, fail(t))
	mustListen(t, c, "players/:string/:string", OpUnspecified, fail(t))
	mustListen(t, c, "players/:id", OpAdd, func(ch Change) {
		calls++
		assert.Equal(t, "three", ch.Vars["id"])
		assert.Equal(t, float64(3), ch.Value)
		assert.Equal(t, OpAdd, ch.Op)
	})

	obj(data, "players")["three"] = float64(3)
	patches := c.Set(data)

	assert.Equal(t, 1, calls)
	require.Len(t, patches, 1)
	assert.Equal(t, []string{"players", "three"}, patches[0].Path)
}

func TestContainerMatchFullPath(t *testing.T) {
	c, data := fixture(t)

	calls := 0
	mustListen(t, c, ":name/x", OpUnspecified, func(ch Change) {
		calls++
		assert.Equal(t, "entity", ch.Vars["name"])
		assert.Equal(t, float64(50), ch.Value)
	})
	mustListen(t, c, ":name/xp", OpUnspecified, func(ch Change) {
		calls++
		assert.Equal(t, "entity", ch.Vars["name"])
		assert.Equal(t, float64(200), ch.Value)
	})

	obj(data, "entity")["x"] = float64(50)
	obj(data, "entity")["xp"] = float64(200)
	c.Set(data)

	assert.Equal(t, 2, calls)
}

func TestContainerListenRemove(t *testing.T) {
	c, data := fixture(t)

	calls := 0
	mustListen(t, c, "players/:name", OpUnspecified, func(ch Change) {
		calls++
		assert.Equal(t, "two", ch.Vars["name"])
		assert.Equal(t, OpRemove, ch.Op)
		assert.Nil(t, ch.Value)
	})

	delete(obj(data, "players"), "two")
	c.Set(data)

	assert.Equal(t, 1, calls)
}

func TestContainerMultipleCallbacks(t *testing.T) {
	c, data := fixture(t)

	calls := 0
	accept := func(Change) { calls++ }
	mustListen(t, c, "players/:string/:string", OpUnspecified, fail(t))
	mustListen(t, c, "players/:string", OpUnspecified, accept)
	mustListen(t, c, "players/:string", OpUnspecified, accept)
	mustListen(t, c, "players/:string", OpUnspecified, accept)

	obj(data, "players")["three"] = float64(3)
	c.Set(data)

	assert.Equal(t, 3, calls)
}

func TestContainerMultipleVariables(t *testing.T) {
	c, data := fixture(t)

	got := map[string]Change{}
	mustListen(t, c, "entities/:id/:attribute", OpReplace, func(ch Change) {
		got[ch.Vars["id"]] = ch
	})

	obj(obj(data, "entities"), "one")["x"] = float64(20)
	obj(obj(data, "entities"), "two")["y"] = float64(40)
	c.Set(data)

	require.Len(t, got, 2)
	assert.Equal(t, "x", got["one"].Vars["attribute"])
	assert.Equal(t, float64(20), got["one"].Value)
	assert.Equal(t, "y", got["two"].Vars["attribute"])
	assert.Equal(t, float64(40), got["two"].Value)
}

func TestContainerCustomPlaceholder(t *testing.T) {
	c, data := fixture(t)
	c.RegisterPlaceholder(":xyz", regexp.MustCompile(`([xyz])`))

	got := map[string]interface{}{}
	mustListen(t, c, "entity/:xyz", OpUnspecified, func(ch Change) {
		got[ch.Vars["xyz"]] = ch.Value
	})

	entity := obj(data, "entity")
	entity["x"] = float64(1)
	entity["y"] = float64(2)
	entity["z"] = float64(3)
	entity["rotation"] = float64(90)
	c.Set(data)

	assert.Equal(t, map[string]interface{}{"x": float64(1), "y": float64(2), "z": float64(3)}, got)
}

func TestContainerPlaceholderResolvedAtListen(t *testing.T) {
	c, data := fixture(t)

	var before, after []string
	mustListen(t, c, "entity/:axis", OpReplace, func(ch Change) {
		before = append(before, ch.Vars["axis"])
	})
	c.RegisterPlaceholder(":axis", regexp.MustCompile(`^(rotation)$`))
	mustListen(t, c, "entity/:axis", OpReplace, func(ch Change) {
		after = append(after, ch.Vars["axis"])
	})

	obj(data, "entity")["x"] = float64(1)
	obj(data, "entity")["rotation"] = float64(90)
	c.Set(data)

	assert.Equal(t, []string{"x"}, before)
	assert.Equal(t, []string{"rotation"}, after)

	// other containers keep the defaults
	other, _ := fixture(t)
	p, err := compilePattern("entity/:axis", other.placeholders)
	require.NoError(t, err)
	_, ok := p.match([]string{"entity", "rotation"})
	assert.False(t, ok)
}

func TestContainerRemoveListener(t *testing.T) {
	c, data := fixture(t)

	calls := 0
	mustListen(t, c, "players/:id", OpAdd, func(ch Change) {
		calls++
		assert.Equal(t, "ten", ch.Vars["id"])
	})
	l := mustListen(t, c, "players/:id", OpAdd, fail(t))

	assert.True(t, c.RemoveListener(l))
	assert.False(t, c.RemoveListener(l))

	obj(data, "players")["ten"] = map[string]interface{}{"ten": float64(10)}
	c.Set(data)

	assert.Equal(t, 1, calls)
}

func TestContainerRepeatedPlaceholder(t *testing.T) {
	c, data := fixture(t)

	calls := 0
	mustListen(t, c, "chests/:id/items/:id", OpUnspecified, func(ch Change) {
		calls++
		// only the last capture is kept under a repeated name
		assert.Equal(t, "two", ch.Vars["id"])
		assert.Equal(t, float64(2), ch.Value)
	})

	obj(obj(obj(data, "chests"), "one"), "items")["two"] = float64(2)
	c.Set(data)

	assert.Equal(t, 1, calls)
}

func TestContainerRemoveAllListeners(t *testing.T) {
	c, data := fixture(t)

	mustListen(t, c, "players", OpUnspecified, fail(t))
	mustListen(t, c, "players", OpUnspecified, fail(t))
	mustListen(t, c, "entity/:attribute", OpUnspecified, fail(t))
	c.ListenFallback(fail(t))
	assert.Equal(t, 4, c.ListenerCount())

	c.RemoveAllListeners()
	assert.Equal(t, 0, c.ListenerCount())

	delete(obj(data, "players"), "one")
	obj(data, "entity")["x"] = float64(100)
	obj(data, "players")["ten"] = map[string]interface{}{"ten": float64(10)}

	patches := c.Set(data)
	assert.Len(t, patches, 3)
}

func TestContainerFallback(t *testing.T) {
	c, data := fixture(t)

	specific, fallback := 0, 0
	mustListen(t, c, "players/:string", OpUnspecified, func(ch Change) {
		specific++
		switch ch.Op {
		case OpAdd:
			assert.Equal(t, "three", ch.Vars["string"])
			assert.Equal(t, float64(3), ch.Value)
		case OpRemove:
			assert.Equal(t, "two", ch.Vars["string"])
			assert.Nil(t, ch.Value)
		default:
			t.Errorf("unexpected operation %s", ch.Op)
		}
	})
	c.ListenFallback(func(ch Change) {
		fallback++
		assert.Nil(t, ch.Vars)
		assert.Equal(t, []string{"entity", "rotation"}, ch.Path)
		assert.Equal(t, OpReplace, ch.Op)
		assert.Equal(t, float64(90), ch.Value)
	})

	obj(data, "players")["three"] = float64(3)
	delete(obj(data, "players"), "two")
	obj(data, "entity")["rotation"] = float64(90)
	c.Set(data)

	assert.Equal(t, 2, specific)
	assert.Equal(t, 1, fallback)
}

func TestContainerFallbackReplaced(t *testing.T) {
	c, data := fixture(t)

	c.ListenFallback(fail(t))
	calls := 0
	c.ListenFallback(func(Change) { calls++ })
	assert.Equal(t, 1, c.ListenerCount())

	obj(data, "entity")["rotation"] = float64(90)
	c.Set(data)
	assert.Equal(t, 1, calls)
}

func TestContainerParentListener(t *testing.T) {
	c, data := fixture(t)

	calls := 0
	mustListen(t, c, "entities/:name", OpAny, func(ch Change) {
		calls++
		assert.Equal(t, OpAny, ch.Op)
		switch ch.Vars["name"] {
		case "one":
			assert.Equal(t, map[string]interface{}{"x": float64(33), "y": float64(99)}, ch.Value)
		case "two":
			assert.Equal(t, map[string]interface{}{"x": float64(55), "y": float64(77)}, ch.Value)
		default:
			t.Errorf("unexpected entity %q", ch.Vars["name"])
		}
	})
	// descent into aggregated subtrees is skipped
	mustListen(t, c, "entities/:id/:attr", OpUnspecified, fail(t))

	one, two := obj(obj(data, "entities"), "one"), obj(obj(data, "entities"), "two")
	one["x"], one["y"] = float64(33), float64(99)
	two["x"], two["y"] = float64(55), float64(77)
	c.Set(data)
	assert.Equal(t, 2, calls)

	var next map[string]interface{}
	require.NoError(t, json.Unmarshal(mustJSON(t, data), &next))

	mustListen(t, c, "entities/:name", OpAdd, func(ch Change) {
		assert.Equal(t, OpAdd, ch.Op)
		calls++
	})
	obj(next, "entities")["three"] = map[string]interface{}{"x": float64(22), "y": float64(55)}
	obj(next, "entities")["four"] = map[string]interface{}{"x": float64(99), "y": float64(21)}
	c.Set(next)

	assert.Equal(t, 4, calls)
}

func TestContainerParentListenerUnchanged(t *testing.T) {
	c, data := fixture(t)

	mustListen(t, c, "entities/:name", OpUnspecified, fail(t))
	mustListen(t, c, "entities/:name/:attribute", OpUnspecified, fail(t))

	assert.Empty(t, c.Set(data))
}

func TestContainerParentListenerMembers(t *testing.T) {
	cases := []struct {
		description string
		modify      func(entity map[string]interface{})
	}{
		{"new property", func(e map[string]interface{}) { e["QQ"] = float64(456) }},
		{"deleted property", func(e map[string]interface{}) { delete(e, "y") }},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			c, data := fixture(t)

			calls := 0
			mustListen(t, c, "entities/:name", OpAny, func(ch Change) {
				calls++
				assert.Equal(t, "one", ch.Vars["name"])
			})

			// a structurally equal snapshot doesn't trigger
			var same map[string]interface{}
			require.NoError(t, json.Unmarshal(mustJSON(t, data), &same))
			c.Set(same)
			assert.Equal(t, 0, calls)

			tc.modify(obj(obj(data, "entities"), "one"))
			c.Set(data)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestContainerDispatchOrder(t *testing.T) {
	c, data := fixture(t)

	var order []string
	mustListen(t, c, "players/:id", OpUnspecified, func(ch Change) {
		order = append(order, fmt.Sprintf("%s %s", ch.Op, ch.Vars["id"]))
	})

	obj(data, "players")["three"] = float64(3)
	delete(obj(data, "players"), "two")
	patches := c.Set(data)

	require.Len(t, patches, 2)
	assert.Equal(t, OpRemove, patches[0].Op)
	assert.Equal(t, OpAdd, patches[1].Op)
	// last generated patch is dispatched first
	assert.Equal(t, []string{"add three", "remove two"}, order)
}

func TestContainerSwapAfterDispatch(t *testing.T) {
	c, data := fixture(t)
	old := c.Data()

	mustListen(t, c, "players/:id", OpAdd, func(ch Change) {
		_, ok := obj(c.Data(), "players")["three"]
		assert.False(t, ok, "snapshot swapped before dispatch finished")
	})

	obj(data, "players")["three"] = float64(3)
	c.Set(data)

	assert.NotEqual(t, old, c.Data())
	_, ok := obj(c.Data(), "players")["three"]
	assert.True(t, ok)
}

func TestContainerCallbackPanic(t *testing.T) {
	c, data := fixture(t)
	old := c.Data()

	l := mustListen(t, c, "players/:id", OpAdd, func(Change) {
		panic("boom")
	})

	obj(data, "players")["three"] = float64(3)
	assert.Panics(t, func() { c.Set(data) })
	assert.Equal(t, old, c.Data())

	c.RemoveListener(l)
	patches := c.Set(data)
	require.Len(t, patches, 1)
	assert.Equal(t, []string{"players", "three"}, patches[0].Path)
}

func TestContainerCompare(t *testing.T) {
	c, data := fixture(t)
	old := c.Data()
	mustListen(t, c, "entity/:attr", OpUnspecified, fail(t))

	obj(data, "entity")["x"] = float64(1)
	patches := c.Compare(data)

	require.Len(t, patches, 1)
	assert.Equal(t, old, c.Data())
}

func TestContainerInvalidPattern(t *testing.T) {
	c, _ := fixture(t)
	_, err := c.Listen("entity/[", OpUnspecified, func(Change) {})
	assert.ErrorIs(t, err, ErrInvalidPattern)
	assert.Equal(t, 0, c.ListenerCount())
}

func TestContainerOptions(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	stats := &Stats{}

	c, data := fixture(t, OptionLogger(logger), OptionContainerStats(stats))
	obj(data, "entity")["x"] = float64(1)
	obj(data, "players")["three"] = float64(3)
	c.Set(data)

	assert.Equal(t, 1, stats.Adds)
	assert.Equal(t, 1, stats.Replaces)

	var unmatched int
	for _, e := range hook.AllEntries() {
		if e.Message == "patch matched no listener" {
			unmatched++
		}
		assert.Equal(t, "deltastate", e.Data["component"])
	}
	assert.Equal(t, 2, unmatched)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "snapshot updated", hook.LastEntry().Message)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
