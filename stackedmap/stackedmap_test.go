// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/credence-net/credence/stackedmap"
)

func M(a ...any) []any {
	return a
}

func TestStackedMap(t *testing.T) {
	src := make(map[string]string)
	src["foo"] = "bar"

	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	tests := []struct {
		f         func()
		depth     int
		putKey    string
		putValue  string
		getKey    string
		getReturn []any
	}{
		{func() {}, 0, "", "", "foo", M("bar", true, nil)},
		{func() { sm.Push() }, 1, "foo", "baz", "foo", M("baz", true, nil)},
		{func() { sm.Push() }, 2, "foo", "qux", "foo", M("qux", true, nil)},
		{func() { sm.Pop() }, 1, "", "", "foo", M("baz", true, nil)},
		{func() { sm.Pop() }, 0, "", "", "foo", M("bar", true, nil)},

		{func() { sm.Push() }, 1, "a", "b", "a", M("b", true, nil)},
		{func() { sm.Push() }, 2, "a", "c", "a", M("c", true, nil)},
		{func() { sm.PopTo(0) }, 0, "", "", "a", M("", false, nil)},
	}

	for _, tt := range tests {
		tt.f()
		assert.Equal(t, tt.depth, sm.Depth())
		if tt.putKey != "" {
			sm.Put(tt.putKey, tt.putValue)
		}
		assert.Equal(t, tt.getReturn, M(sm.Get(tt.getKey)))
	}
}

func TestStackedMapPuts(t *testing.T) {
	sm := stackedmap.New(func(string) (string, bool, error) {
		return "", false, nil
	})

	kvs := []struct{ k, v string }{
		{"a", "1"},
		{"a", "1"},
		{"b", "2"},
		{"c", "3"},
	}

	sm.Push()
	for _, kv := range kvs {
		sm.Put(kv.k, kv.v)
	}
	i := 0
	sm.Journal(func(k, v string) bool {
		assert.Equal(t, kvs[i].k, k)
		assert.Equal(t, kvs[i].v, v)
		i++
		return true
	})
	assert.Equal(t, len(kvs), i)

	sm.Pop()
	_, found, _ := sm.Get("a")
	assert.False(t, found)
}
